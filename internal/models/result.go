package models

// SearchHit is a single similarity search result.
type SearchHit struct {
	ID string `json:"id"`
	// Score is the metric value the database reports: a distance for L2
	// (smaller is closer), a similarity for IP and COSINE (larger is closer).
	Score  float64                `json:"score"`
	Fields map[string]interface{} `json:"fields,omitempty"`
}

// SearchResponse is the response for a search request. Hits are ordered
// best-first per the collection's metric.
type SearchResponse struct {
	Hits      []*SearchHit `json:"hits"`
	QueryTime int64        `json:"query_time_ms"`
}

// Status summarizes the collection as observed on the database.
type Status struct {
	Collection string `json:"collection"`
	Exists     bool   `json:"exists"`
	RowCount   int64  `json:"row_count"`
	Dimensions int    `json:"dimensions,omitempty"`
	IndexType  string `json:"index_type,omitempty"`
	Metric     string `json:"metric,omitempty"`
}
