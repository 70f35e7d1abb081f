package gql

// 内置类型名称
const (
	TYPE_PAGE_INFO       = "PageInfo"
	TYPE_SORT_DIRECTION  = "SortDirection"
	TYPE_SORTING_INPUT   = "SortingInput"
	TYPE_SUBMIT_INPUT    = "SubmitInputType"
	TYPE_SUBMIT_OUTPUT   = "SubmitOutput"
	TYPE_INT_FILTER      = "IntFilter"
	TYPE_LONG_FILTER     = "LongFilter"
	TYPE_FLOAT_FILTER    = "FloatFilter"
	TYPE_STRING_FILTER   = "StringFilter"
	TYPE_BOOLEAN_FILTER  = "BooleanFilter"
	TYPE_DATETIME_FILTER = "DateTimeFilter"
	TYPE_ID_FILTER       = "IDFilter"
)

// 标量名称
const (
	SCALAR_ID        = "ID"
	SCALAR_INT       = "Int"
	SCALAR_LONG      = "Long"
	SCALAR_JSON      = "JSON"
	SCALAR_FLOAT     = "Float"
	SCALAR_STRING    = "String"
	SCALAR_BOOLEAN   = "Boolean"
	SCALAR_DATE_TIME = "DateTime"
)

// 生成类型的前后缀
const (
	PREFIX_INPUT       = "Input"
	PREFIX_AUTO        = "Auto"
	SUFFIX_LOADER      = "Loader"
	SUFFIX_FILTER      = "Filter"
	SUFFIX_PAYLOAD     = "Payload"
	SUFFIX_CONNECTION  = "Connection"
	SUFFIX_EDGE        = "Edge"
	SUFFIX_SUBMIT_ITEM = "SubmitItem"
)

// 参数名称
const (
	ID      = "id"
	FILTER  = "filter"
	SEARCH  = "search"
	SORTING = "sorting"
	FIRST   = "first"
	AFTER   = "after"
	LAST    = "last"
	BEFORE  = "before"
	TAKE    = "take"
	SKIP    = "skip"
	PAYLOAD = "payload"
	DELETE  = "delete"
	SUBMIT  = "submit"
)

// 连接类型字段
const (
	TOTAL_COUNT       = "totalCount"
	ITEMS             = "items"
	EDGES             = "edges"
	PAGE_INFO         = "pageInfo"
	CURSOR            = "cursor"
	NODE              = "node"
	HAS_NEXT_PAGE     = "hasNextPage"
	HAS_PREVIOUS_PAGE = "hasPreviousPage"
	START_CURSOR      = "startCursor"
	END_CURSOR        = "endCursor"
)

// 逻辑关系操作符
const (
	NOT = "not"
	AND = "and"
	OR  = "or"
)

// 排序字段
const (
	SORT_FIELD     = "field"
	SORT_DIRECTION = "direction"
)

// 过滤操作符
const (
	OP_IS_NULL     = "isNull"
	OP_EQ          = "eq"
	OP_NEQ         = "neq"
	OP_IN          = "in"
	OP_NIN         = "nin"
	OP_GT          = "gt"
	OP_GTE         = "gte"
	OP_LT          = "lt"
	OP_LTE         = "lte"
	OP_CONTAINS    = "contains"
	OP_STARTS_WITH = "startsWith"
	OP_ENDS_WITH   = "endsWith"
)

// 过滤操作符描述
const (
	descIsNull     = "Is value null (true) or not null (false)"
	descEqual      = "Equals value"
	descNotEqual   = "Does not equal value"
	descIn         = "Is in list of values"
	descNotIn      = "Is not in list of values"
	descGreater    = "Is greater than value"
	descGreaterEq  = "Is greater than or equal to value"
	descLess       = "Is less than value"
	descLessEq     = "Is less than or equal to value"
	descContains   = "Contains the substring"
	descStartsWith = "Starts with the prefix"
	descEndsWith   = "Ends with the suffix"
)

// 内置类型描述
const (
	DESC_PAGE_INFO      = "页面信息（用于游标分页）"
	DESC_SORT_DIRECTION = "排序方向"
	DESC_SORTING_INPUT  = "排序条件"
	DESC_SUBMIT_INPUT   = "批量提交的实体"
	DESC_SUBMIT_OUTPUT  = "批量提交的结果"
	DESC_JSON           = "任意JSON值"
	DESC_DATE_TIME      = "RFC3339格式的时间"
	DESC_LONG           = "64位整数，超过2^53时以字符串表示"
)
