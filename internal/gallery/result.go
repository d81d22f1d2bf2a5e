package gallery

import "strings"

// QueryResult 是 extensionquery 的响应体。
type QueryResult struct {
	Results []ResultSet `json:"results"`
}

// ResultSet 对应请求中的一个 Filter。
type ResultSet struct {
	Extensions     []Extension      `json:"extensions"`
	PagingToken    *string          `json:"pagingToken"`
	ResultMetadata []ResultMetadata `json:"resultMetadata"`
}

type ResultMetadata struct {
	MetadataType  string         `json:"metadataType"`
	MetadataItems []MetadataItem `json:"metadataItems"`
}

type MetadataItem struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Extension 描述市场中的一个扩展及其（按 flags 返回的）版本信息。
type Extension struct {
	Publisher        Publisher   `json:"publisher"`
	ExtensionID      string      `json:"extensionId"`
	ExtensionName    string      `json:"extensionName"`
	DisplayName      string      `json:"displayName"`
	Flags            string      `json:"flags"`
	LastUpdated      string      `json:"lastUpdated"`
	PublishedDate    string      `json:"publishedDate"`
	ReleaseDate      string      `json:"releaseDate"`
	ShortDescription string      `json:"shortDescription"`
	Versions         []Version   `json:"versions"`
	Categories       []string    `json:"categories"`
	Tags             []string    `json:"tags"`
	Statistics       []Statistic `json:"statistics"`
}

type Publisher struct {
	PublisherID   string `json:"publisherId"`
	PublisherName string `json:"publisherName"`
	DisplayName   string `json:"displayName"`
}

type Version struct {
	Version          string     `json:"version"`
	TargetPlatform   string     `json:"targetPlatform,omitempty"`
	Flags            string     `json:"flags"`
	LastUpdated      string     `json:"lastUpdated"`
	Files            []File     `json:"files"`
	Properties       []Property `json:"properties"`
	AssetURI         string     `json:"assetUri"`
	FallbackAssetURI string     `json:"fallbackAssetUri"`
}

type File struct {
	AssetType string `json:"assetType"`
	Source    string `json:"source"`
}

type Property struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type Statistic struct {
	StatisticName string  `json:"statisticName"`
	Value         float64 `json:"value"`
}

// ID 返回 publisher.name 形式的扩展标识。
func (e Extension) ID() string {
	return e.Publisher.PublisherName + "." + e.ExtensionName
}

// Extensions 按结果集顺序展开全部扩展。
func (r *QueryResult) Extensions() []Extension {
	if r == nil {
		return nil
	}
	var all []Extension
	for _, set := range r.Results {
		all = append(all, set.Extensions...)
	}
	return all
}

// Missing 返回 ids 中未出现在结果里的扩展 ID（大小写不敏感），顺序与输入一致。
func (r *QueryResult) Missing(ids []string) []string {
	found := make(map[string]struct{})
	for _, ext := range r.Extensions() {
		found[strings.ToLower(ext.ID())] = struct{}{}
	}
	var missing []string
	for _, id := range ids {
		if _, ok := found[strings.ToLower(id)]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}
