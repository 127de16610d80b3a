package types

// UploaderInfo 上传者自述信息（不可信的自由文本）.
type UploaderInfo struct {
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"   rule:"omitempty,email"`
	Message string `json:"message,omitempty"`
}

// StagedFolder 客户端声明的文件夹描述符.
// ClientID 为客户端生成的占位 ID，仅在一次批次提交内有效；
// ParentClientID 引用同批次的占位 ID 或一个已存在文件夹的真实 ID.
type StagedFolder struct {
	ClientID       string `binding:"required" json:"client_id"`
	Name           string `binding:"required" json:"name"`
	ParentClientID string `json:"parent_client_id,omitempty"`
	SortOrder      int    `json:"sort_order"`
}

// StagedFileMeta 客户端声明的文件描述符（与 multipart 中的字节按 client_id 对应）.
type StagedFileMeta struct {
	ClientID       string `binding:"required" json:"client_id"`
	FileName       string `binding:"required" json:"file_name"`
	Size           int64  `json:"size"`
	ContentType    string `json:"content_type,omitempty"`
	FolderClientID string `json:"folder_client_id,omitempty"`
	SortOrder      int    `json:"sort_order"`
}

// StagedBatchManifest 一次批量上传的声明清单.
type StagedBatchManifest struct {
	Folders  []StagedFolder   `json:"folders"`
	Files    []StagedFileMeta `json:"files"`
	Uploader UploaderInfo     `json:"uploader"`
	Password string           `json:"password,omitempty"`
}

// StagedBatchResponse 批量上传的聚合结果.
// 部分失败不是硬错误：批次仍标记完成，失败条目随 Failures 返回.
type StagedBatchResponse struct {
	BatchID        string        `json:"batch_id"`
	UploadedFiles  int           `json:"uploaded_files"`
	CreatedFolders int           `json:"created_folders"`
	TotalProcessed int           `json:"total_processed"`
	Failures       []ItemFailure `json:"failures,omitempty"`
}

// CreateBatchRequest 预创建批次与待传文件行.
type CreateBatchRequest struct {
	Files    []StagedFileMeta `binding:"required" json:"files"`
	Uploader UploaderInfo     `json:"uploader"`
	Password string           `json:"password,omitempty"`
}

// CreateBatchResponse 批次创建结果，返回每个文件的服务端 ID.
type CreateBatchResponse struct {
	BatchID string           `json:"batch_id"`
	Files   []CreatedFileRef `json:"files"`
}

// CreatedFileRef 预创建的文件行引用.
type CreatedFileRef struct {
	ID       string `json:"id"`
	FileName string `json:"file_name"`
}

// UploadFileResponse 单文件上传结果.
type UploadFileResponse struct {
	ID   string `json:"id"`
	Path string `json:"path"`
}

// DeleteItemKind 删除条目的显式类型标记，不从 ID 形态推断.
type DeleteItemKind string

const (
	DeleteItemFile   DeleteItemKind = "file"
	DeleteItemFolder DeleteItemKind = "folder"
)

// DeleteItem 待删除条目.
type DeleteItem struct {
	Kind DeleteItemKind `binding:"required,oneof=file folder" json:"kind"`
	ID   string         `binding:"required"                   json:"id"`
}

// BatchDeleteRequest 批量删除链接下的文件/文件夹.
type BatchDeleteRequest struct {
	Items []DeleteItem `binding:"required,min=1" json:"items"`
}

// BatchDeleteResponse 批量删除结果.
type BatchDeleteResponse struct {
	DeletedFiles   int           `json:"deleted_files"`
	DeletedFolders int           `json:"deleted_folders"`
	FailedItems    []ItemFailure `json:"failed_items,omitempty"`
}
