package media

// File is an upload received from a client and staged on local disk
type File struct {
	OriginalName string
	Path         string
	MimeType     string
	Size         int64
}
