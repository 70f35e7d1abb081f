package std

import (
	"fmt"
	"time"

	"github.com/ichaly/fluentgql/std/internal"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewConnect(c *Config, p []gorm.Plugin, e []interface{}) (*gorm.DB, error) {
	if c.Database == nil {
		return nil, fmt.Errorf("database is not configured")
	}
	level := logger.Warn
	if c.IsDebug() {
		level = logger.Info
	}
	db, err := gorm.Open(
		buildDialect(c.Database),
		&gorm.Config{PrepareStmt: c.Database.Dialect != "sqlite", Logger: logger.Default.LogMode(level)},
	)
	if err != nil {
		return nil, err
	}
	for _, v := range p {
		if err = db.Use(v); err != nil {
			return nil, err
		}
	}
	if c.IsDebug() || c.Database.Dialect == "sqlite" {
		for _, v := range e {
			tx := db
			if d, ok := v.(Description); ok && c.Database.Dialect == "mysql" {
				tx = db.Set("gorm:table_options", fmt.Sprintf("COMMENT='%s'", d.Description()))
			}
			if err = tx.AutoMigrate(v); err != nil {
				return nil, err
			}
		}
	}
	if sqlDb, err := db.DB(); err == nil && c.Database.Dialect != "sqlite" {
		sqlDb.SetMaxIdleConns(5)
		sqlDb.SetMaxOpenConns(90)
		sqlDb.SetConnMaxLifetime(5 * time.Minute)
	}
	return db, nil
}

func buildDialect(ds *internal.DataSource) gorm.Dialector {
	args := []interface{}{ds.Username, ds.Password, ds.Host, ds.Port, ds.Name}
	switch ds.Dialect {
	case "sqlite":
		return sqlite.Open(ds.Name)
	case "mysql":
		if ds.Uri != "" {
			return mysql.Open(ds.Uri)
		}
		return mysql.Open(fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local", args...,
		))
	default:
		if ds.Uri != "" {
			return postgres.Open(ds.Uri)
		}
		return postgres.Open(fmt.Sprintf(
			"user=%s password=%s host=%s port=%d dbname=%s sslmode=disable TimeZone=Asia/Shanghai", args...,
		))
	}
}
