package gql

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"
	"github.com/ichaly/fluentgql/std"
	"github.com/ichaly/fluentgql/utl"
	"gorm.io/datatypes"
)

// JSON 任意JSON值
var JSON = graphql.NewScalar(graphql.ScalarConfig{
	Name:        SCALAR_JSON,
	Description: DESC_JSON,
	Serialize: func(value interface{}) interface{} {
		switch v := value.(type) {
		case datatypes.JSON:
			return decodeRaw(v)
		case json.RawMessage:
			return decodeRaw(v)
		case *datatypes.JSON:
			if v == nil {
				return nil
			}
			return decodeRaw(*v)
		}
		return value
	},
	ParseValue: func(value interface{}) interface{} {
		return value
	},
	ParseLiteral: parseLiteral,
})

func decodeRaw(data []byte) interface{} {
	if len(data) == 0 {
		return nil
	}
	var v interface{}
	if err := utl.UnmarshalJSON(data, &v); err != nil {
		return nil
	}
	return v
}

func parseLiteral(valueAST ast.Value) interface{} {
	switch v := valueAST.(type) {
	case *ast.ObjectValue:
		obj := make(map[string]interface{}, len(v.Fields))
		for _, f := range v.Fields {
			obj[f.Name.Value] = parseLiteral(f.Value)
		}
		return obj
	case *ast.ListValue:
		list := make([]interface{}, 0, len(v.Values))
		for _, item := range v.Values {
			list = append(list, parseLiteral(item))
		}
		return list
	case *ast.IntValue:
		return graphql.Int.ParseLiteral(v)
	case *ast.FloatValue:
		return graphql.Float.ParseLiteral(v)
	case *ast.BooleanValue:
		return v.Value
	case *ast.StringValue:
		return v.Value
	case *ast.EnumValue:
		return v.Value
	}
	return nil
}

// 超过该范围的 Long 值以字符串输出，JavaScript 的 Number 无法精确表示
const maxSafeInteger = 1<<53 - 1

// Long 64位整数，JSON 安全范围内输出数字，否则输出十进制字符串
var Long = graphql.NewScalar(graphql.ScalarConfig{
	Name:        SCALAR_LONG,
	Description: DESC_LONG,
	Serialize: func(value interface{}) interface{} {
		rv := reflect.ValueOf(value)
		for rv.Kind() == reflect.Ptr {
			if rv.IsNil() {
				return nil
			}
			rv = rv.Elem()
		}
		switch {
		case rv.CanInt():
			n := rv.Int()
			if n > maxSafeInteger || n < -maxSafeInteger {
				return strconv.FormatInt(n, 10)
			}
			return n
		case rv.CanUint():
			n := rv.Uint()
			if n > maxSafeInteger {
				return strconv.FormatUint(n, 10)
			}
			return int64(n)
		case rv.Kind() == reflect.String:
			if n, err := parseInteger(rv.String()); err == nil {
				return n.Interface()
			}
		}
		return nil
	},
	ParseValue: func(value interface{}) interface{} {
		switch v := value.(type) {
		case json.Number:
			if n, err := parseInteger(v.String()); err == nil {
				return n.Interface()
			}
			return nil
		case string:
			if n, err := parseInteger(v); err == nil {
				return n.Interface()
			}
			return nil
		case float64:
			if v != math.Trunc(v) {
				return nil
			}
			return int64(v)
		}
		if rv := reflect.ValueOf(value); rv.CanInt() || rv.CanUint() {
			return value
		}
		return nil
	},
	ParseLiteral: func(valueAST ast.Value) interface{} {
		switch v := valueAST.(type) {
		case *ast.IntValue:
			if n, err := parseInteger(v.Value); err == nil {
				return n.Interface()
			}
		case *ast.StringValue:
			if n, err := parseInteger(v.Value); err == nil {
				return n.Interface()
			}
		}
		return nil
	},
})

var (
	timeType     = reflect.TypeOf(time.Time{})
	idType       = reflect.TypeOf(std.Id(0))
	uuidType     = reflect.TypeOf(uuid.UUID{})
	jsonType     = reflect.TypeOf(datatypes.JSON{})
	jsonMapType  = reflect.TypeOf(datatypes.JSONMap{})
	rawType      = reflect.TypeOf(json.RawMessage{})
	anyMapType   = reflect.TypeOf(map[string]interface{}{})
	dateType     = reflect.TypeOf(datatypes.Date{})
	interfaceAny = reflect.TypeOf((*interface{})(nil)).Elem()
)

// scalarOf 将Go类型映射为内置标量，非标量返回nil
func scalarOf(t reflect.Type) *graphql.Scalar {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch t {
	case timeType, dateType:
		return graphql.DateTime
	case idType, uuidType:
		return graphql.ID
	case jsonType, jsonMapType, rawType, anyMapType, interfaceAny:
		return JSON
	}
	switch t.Kind() {
	case reflect.String:
		return graphql.String
	case reflect.Bool:
		return graphql.Boolean
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Uint8, reflect.Uint16:
		return graphql.Int
	case reflect.Int64, reflect.Uint, reflect.Uint32, reflect.Uint64:
		return Long
	case reflect.Float32, reflect.Float64:
		return graphql.Float
	}
	return nil
}

// filterOf 返回标量对应的过滤分组
func filterOf(s *graphql.Scalar) string {
	switch s {
	case graphql.Int:
		return TYPE_INT_FILTER
	case Long:
		return TYPE_LONG_FILTER
	case graphql.Float:
		return TYPE_FLOAT_FILTER
	case graphql.String:
		return TYPE_STRING_FILTER
	case graphql.Boolean:
		return TYPE_BOOLEAN_FILTER
	case graphql.DateTime:
		return TYPE_DATETIME_FILTER
	case graphql.ID:
		return TYPE_ID_FILTER
	}
	return ""
}

// output 把反射值规整为 graphql-go 能序列化的值
// 命名的基础类型会被转换为基础类型，结构体保持指针以便子字段继续解析
func output(v reflect.Value) interface{} {
	if !v.IsValid() {
		return nil
	}
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil
		}
		if v.Kind() == reflect.Ptr && v.Elem().Kind() == reflect.Struct && !isScalarStruct(v.Elem().Type()) {
			return v.Interface()
		}
		v = v.Elem()
	}

	switch v.Type() {
	case timeType:
		return v.Interface()
	case idType:
		return v.Interface().(std.Id).Encode()
	case uuidType:
		return v.Interface().(uuid.UUID).String()
	case jsonType, rawType:
		return decodeRaw(v.Bytes())
	case jsonMapType:
		return map[string]interface{}(v.Interface().(datatypes.JSONMap))
	case dateType:
		return time.Time(v.Interface().(datatypes.Date))
	}

	switch v.Kind() {
	case reflect.String:
		return v.String()
	case reflect.Bool:
		return v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32:
		return int(v.Int())
	case reflect.Uint8, reflect.Uint16:
		return int(v.Uint())
	case reflect.Int64:
		return v.Int()
	case reflect.Uint, reflect.Uint32, reflect.Uint64:
		return v.Uint()
	case reflect.Float32, reflect.Float64:
		return v.Float()
	case reflect.Slice, reflect.Array:
		list := make([]interface{}, v.Len())
		for i := range list {
			item := v.Index(i)
			if item.Kind() == reflect.Struct && item.CanAddr() && !isScalarStruct(item.Type()) {
				item = item.Addr()
			}
			list[i] = output(item)
		}
		return list
	case reflect.Map:
		return v.Interface()
	case reflect.Struct:
		if v.CanAddr() {
			return v.Addr().Interface()
		}
		ptr := reflect.New(v.Type())
		ptr.Elem().Set(v)
		return ptr.Interface()
	}
	return v.Interface()
}

func isInteger(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

func isScalarStruct(t reflect.Type) bool {
	return t == timeType || t == uuidType || t == dateType
}

// convert 把 graphql 输入值转换为目标Go类型
func convert(t reflect.Type, value interface{}) (reflect.Value, error) {
	if value == nil {
		return reflect.Zero(t), nil
	}
	rv := reflect.ValueOf(value)
	if rv.Type().AssignableTo(t) {
		return rv, nil
	}
	if t.Kind() == reflect.Ptr {
		inner, err := convert(t.Elem(), value)
		if err != nil {
			return reflect.Value{}, err
		}
		ptr := reflect.New(t.Elem())
		ptr.Elem().Set(inner)
		return ptr, nil
	}
	if isInteger(t.Kind()) && (rv.CanInt() || rv.CanUint() || rv.CanFloat()) {
		return toInteger(t, rv)
	}
	if rv.Type().ConvertibleTo(t) && rv.Kind() != reflect.String && t.Kind() != reflect.String {
		return rv.Convert(t), nil
	}

	target := reflect.New(t)
	switch {
	case t == idType:
		id, err := std.ParseId(toString(value))
		if err != nil {
			return reflect.Value{}, err
		}
		target.Elem().Set(reflect.ValueOf(id))
	case t == timeType:
		if tm, ok := value.(time.Time); ok {
			target.Elem().Set(reflect.ValueOf(tm))
		} else if err := utl.Convert(value, target.Interface()); err != nil {
			return reflect.Value{}, err
		}
	case t == jsonType:
		data, err := utl.MarshalJSON(value)
		if err != nil {
			return reflect.Value{}, err
		}
		target.Elem().SetBytes(data)
	case t.Kind() == reflect.String:
		target.Elem().SetString(toString(value))
	case isInteger(t.Kind()) && rv.Kind() == reflect.String:
		n, err := parseInteger(rv.String())
		if err != nil {
			return reflect.Value{}, err
		}
		return toInteger(t, n)
	default:
		if err := utl.Convert(value, target.Interface()); err != nil {
			return reflect.Value{}, err
		}
	}
	return target.Elem(), nil
}

// parseInteger 负数与 int64 范围内的值按有符号解析，更大的按无符号解析
func parseInteger(s string) (reflect.Value, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return reflect.ValueOf(n), nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return reflect.Value{}, fmt.Errorf("%q is not an integer", s)
	}
	return reflect.ValueOf(n), nil
}

// toInteger 转换前检查符号与取值范围，避免负数回绕为无符号数或窄类型溢出
func toInteger(t reflect.Type, rv reflect.Value) (reflect.Value, error) {
	zero := reflect.Zero(t)
	unsigned := zero.CanUint()
	overflow := false
	switch {
	case rv.CanInt():
		n := rv.Int()
		if unsigned {
			overflow = n < 0 || zero.OverflowUint(uint64(n))
		} else {
			overflow = zero.OverflowInt(n)
		}
	case rv.CanUint():
		n := rv.Uint()
		if unsigned {
			overflow = zero.OverflowUint(n)
		} else {
			overflow = n > math.MaxInt64 || zero.OverflowInt(int64(n))
		}
	case rv.CanFloat():
		f := rv.Float()
		if f != math.Trunc(f) || math.IsInf(f, 0) {
			return reflect.Value{}, fmt.Errorf("%v is not an integer", f)
		}
		if unsigned {
			overflow = f < 0 || f >= 1<<64 || zero.OverflowUint(uint64(f))
		} else {
			overflow = f < -1<<63 || f >= 1<<63 || zero.OverflowInt(int64(f))
		}
	}
	if overflow {
		return reflect.Value{}, fmt.Errorf("%v overflows %s", rv.Interface(), t)
	}
	return rv.Convert(t), nil
}

func toString(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	}
	data, _ := utl.MarshalJSON(value)
	return string(data)
}
