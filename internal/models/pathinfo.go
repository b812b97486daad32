package models

// PathInfo describes one entry produced by a local walk. Parent is the
// directory that contains FullPath; Depth is 0 for the walk root.
type PathInfo struct {
	Name     string
	FullPath string
	Parent   string
	IsDir    bool
	Depth    int
}
