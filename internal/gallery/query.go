// Package gallery builds extension marketplace queries and describes the
// response shape returned by the extensionquery endpoint.
package gallery

// AcceptHeader 是扩展市场要求的 Accept 头，携带 API 版本。
const AcceptHeader = "application/json; charset=utf-8; api-version=7.2-preview.1"

// TargetVSCode 将查询限定在 VS Code 扩展。
const TargetVSCode = "Microsoft.VisualStudio.Code"

// FilterType 对应市场查询条件的 filterType 枚举。
type FilterType int

const (
	FilterTypeTag           FilterType = 1
	FilterTypeExtensionID   FilterType = 4
	FilterTypeCategory      FilterType = 5
	FilterTypeExtensionName FilterType = 7
	FilterTypeTarget        FilterType = 8
	FilterTypeFeatured      FilterType = 9
	FilterTypeSearchText    FilterType = 10
	FilterTypeExcludeFlags  FilterType = 12
)

// Flags 控制市场返回哪些附加字段。
type Flags int

const (
	FlagIncludeVersions          Flags = 0x1
	FlagIncludeFiles             Flags = 0x2
	FlagIncludeCategoryAndTags   Flags = 0x4
	FlagIncludeVersionProperties Flags = 0x10
	FlagExcludeNonValidated      Flags = 0x20
	FlagIncludeAssetURI          Flags = 0x80
	FlagIncludeStatistics        Flags = 0x100
	FlagIncludeLatestVersionOnly Flags = 0x200

	DefaultFlags = FlagIncludeVersions | FlagIncludeFiles | FlagIncludeCategoryAndTags |
		FlagIncludeVersionProperties | FlagIncludeAssetURI | FlagIncludeStatistics |
		FlagIncludeLatestVersionOnly
)

// Query 是 POST 给 extensionquery 的请求体。
type Query struct {
	Filters    []Filter `json:"filters"`
	AssetTypes []string `json:"assetTypes"`
	Flags      Flags    `json:"flags"`
}

// Filter 是一组查询条件及分页参数。
type Filter struct {
	Criteria   []Criterion `json:"criteria"`
	PageNumber int         `json:"pageNumber"`
	PageSize   int         `json:"pageSize"`
	SortBy     int         `json:"sortBy"`
	SortOrder  int         `json:"sortOrder"`
}

// Criterion 是单个过滤条件。
type Criterion struct {
	FilterType FilterType `json:"filterType"`
	Value      string     `json:"value"`
}

// NewQuery 以 publisher.name 形式的扩展 ID 列表构造查询，保留调用方给出的顺序。
func NewQuery(ids []string) Query {
	criteria := make([]Criterion, 0, len(ids)+1)
	criteria = append(criteria, Criterion{FilterType: FilterTypeTarget, Value: TargetVSCode})
	for _, id := range ids {
		criteria = append(criteria, Criterion{FilterType: FilterTypeExtensionName, Value: id})
	}

	pageSize := len(ids)
	if pageSize == 0 {
		pageSize = 1
	}

	return Query{
		Filters: []Filter{{
			Criteria:   criteria,
			PageNumber: 1,
			PageSize:   pageSize,
		}},
		AssetTypes: []string{},
		Flags:      DefaultFlags,
	}
}

// DefaultEndpoint 是扩展市场的批量查询接口。
const DefaultEndpoint = "https://marketplace.visualstudio.com/_apis/public/gallery/extensionquery"
