package models

// SeriesSnapshot is a point-in-time copy of a session's registry and series.
type SeriesSnapshot struct {
	Variables       []Variable           `json:"variables" msgpack:"variables"`
	Series          map[string][]float64 `json:"series" msgpack:"series"`
	SamplesExceeded bool                 `json:"samplesExceeded" msgpack:"samplesExceeded"`
	ByteSize        int                  `json:"byteSize" msgpack:"byteSize"`
	LineCount       int64                `json:"lineCount" msgpack:"lineCount"`
}

// AlignedSnapshot is a snapshot whose series are front-padded with nulls to
// the length of the longest series.
type AlignedSnapshot struct {
	Variables []Variable            `json:"variables" msgpack:"variables"`
	Length    int                   `json:"length" msgpack:"length"`
	Series    map[string][]*float64 `json:"series" msgpack:"series"`
}

// SeriesStats summarises the tail window of one series.
type SeriesStats struct {
	Name    string  `json:"name"`
	Count   int     `json:"count"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Mean    float64 `json:"mean"`
	Current float64 `json:"current"`
}
