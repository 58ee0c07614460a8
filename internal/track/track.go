// internal/track/track.go
package track

// Info is the decoded metadata of one track, as returned by the node's
// /decodetrack endpoint.
type Info struct {
	Identifier string `json:"identifier"`
	IsSeekable bool   `json:"isSeekable"`
	Author     string `json:"author"`
	Length     int64  `json:"length"`
	IsStream   bool   `json:"isStream"`
	Position   int64  `json:"position"`
	Title      string `json:"title"`
	URI        string `json:"uri"`
}

// Track pairs the opaque encoded blob the node sends in events with its
// decoded metadata.
type Track struct {
	Encoded string
	Info    Info
}
