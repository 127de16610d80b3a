package types

import "time"

// TreeFile 树中的文件节点.
type TreeFile struct {
	ID            string    `json:"id"`
	FolderID      string    `json:"folder_id,omitempty"`
	FileName      string    `json:"file_name"`
	Size          int64     `json:"size"`
	ContentType   string    `json:"content_type,omitempty"`
	DownloadURL   string    `json:"download_url,omitempty"`
	DownloadCount int64     `json:"download_count"`
	SortOrder     int       `json:"sort_order"`
	UploadedAt    time.Time `json:"uploaded_at"`
}

// TreeFolder 树中的文件夹节点，Children/Files 按 (sort_order, name) 排序.
type TreeFolder struct {
	ID        string        `json:"id"`
	ParentID  string        `json:"parent_id,omitempty"`
	Name      string        `json:"name"`
	Path      string        `json:"path"`
	Depth     int           `json:"depth"`
	SortOrder int           `json:"sort_order"`
	Children  []*TreeFolder `json:"children,omitempty"`
	Files     []TreeFile    `json:"files,omitempty"`
}

// TreeStats 树的聚合统计.
type TreeStats struct {
	FolderCount int   `json:"folder_count"`
	FileCount   int   `json:"file_count"`
	TotalSize   int64 `json:"total_size"`
}

// LinkTreeResponse 链接的完整层级结构.
// Folders 为根级文件夹，RootFiles 为直接挂在链接根部的文件.
type LinkTreeResponse struct {
	Folders   []*TreeFolder `json:"folders"`
	RootFiles []TreeFile    `json:"root_files"`
	Stats     TreeStats     `json:"stats"`
}
