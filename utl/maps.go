package utl

import (
	"cmp"
	"slices"

	"github.com/samber/lo"
)

// SortKeys 升序返回键，保证输出顺序稳定
func SortKeys[K cmp.Ordered, V any](m map[K]V) []K {
	keys := lo.Keys(m)
	slices.Sort(keys)
	return keys
}
