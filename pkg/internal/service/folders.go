package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/yeisme/linkvault/pkg/configs"
	"github.com/yeisme/linkvault/pkg/internal/model"
	"github.com/yeisme/linkvault/pkg/internal/types"
	nlog "github.com/yeisme/linkvault/pkg/log"
	"github.com/yeisme/linkvault/pkg/queue"
)

// maxFolderDepth 文件夹最大嵌套层级（根为 0）.
const maxFolderDepth = 32

// FolderService 负责把客户端声明的文件夹描述符物化为真实文件夹行.
type FolderService struct {
	clients
}

// NewFolderService 创建并返回一个新的 FolderService 实例.
func NewFolderService(c context.Context) *FolderService {
	return &FolderService{clients: newClients(c)}
}

// MaterializeResult 物化结果：client_id 到真实文件夹的映射与逐项失败.
type MaterializeResult struct {
	// ByClientID 成功物化（或解析到已存在文件夹）的映射
	ByClientID map[string]*model.Folder
	Created    int
	Failures   []types.ItemFailure
}

// stagedNode 物化过程中的中间状态.
type stagedNode struct {
	desc   *types.StagedFolder
	parent *stagedNode // 同批次内的父节点，nil 表示父为根或已有文件夹
	depth  int
	failed bool
}

// Materialize 将一批文件夹描述符物化为文件夹行.
//
// 描述符的 parent_client_id 可以引用同批次的占位 ID，也可以引用一个已存在
// 文件夹的真实 ID；层级按父子关系逐层下推（父先于子创建），深度与路径在
// 创建时固化到行上.
//
// 单项失败（环引用、父缺失、超深、落库失败）不会中断整批：失败项与其全部
// 后代记入 Failures，其余项继续.
func (s *FolderService) Materialize(ctx context.Context, link *model.Link, batchID string, folders []types.StagedFolder) (*MaterializeResult, error) {
	result := &MaterializeResult{ByClientID: make(map[string]*model.Folder, len(folders))}

	if len(folders) == 0 {
		return result, nil
	}

	if s.db == nil {
		return nil, errors.New("db not initialized")
	}

	nodes := make(map[string]*stagedNode, len(folders))

	for i := range folders {
		desc := &folders[i]
		if desc.ClientID == "" {
			result.Failures = append(result.Failures, types.ItemFailure{
				ItemName: desc.Name, Error: "缺少 client_id",
			})

			continue
		}

		if _, dup := nodes[desc.ClientID]; dup {
			result.Failures = append(result.Failures, types.ItemFailure{
				ItemID: desc.ClientID, ItemName: desc.Name, Error: "client_id 重复",
			})

			continue
		}

		nodes[desc.ClientID] = &stagedNode{desc: desc}
	}

	// 批内父指针连接；指向批外的留给 DB 解析
	for _, n := range nodes {
		if p, ok := nodes[n.desc.ParentClientID]; ok {
			n.parent = p
		}
	}

	s.markCycles(nodes, result)

	// 逐层物化：每一轮处理所有"父已就绪"的节点，直到没有进展
	pending := make(map[string]*stagedNode, len(nodes))

	for id, n := range nodes {
		if !n.failed {
			pending[id] = n
		}
	}

	now := time.Now().UTC()

	for len(pending) > 0 {
		progressed := false

		for id, n := range pending {
			parentFolder, ready, rej := s.resolveParent(ctx, link, n, result)
			if rej != nil {
				s.failSubtree(n, nodes, result, rej.Error)
				delete(pending, id)

				progressed = true

				continue
			}

			if !ready {
				continue
			}

			folder, err := s.createFolder(ctx, link, batchID, n.desc, parentFolder, now)
			if err != nil {
				nlog.Logger().Warn().Err(err).
					Str("client_id", id).Str("name", n.desc.Name).
					Msg("materialize folder failed")
				s.failSubtree(n, nodes, result, fmt.Sprintf("创建文件夹失败: %v", err))
				delete(pending, id)

				progressed = true

				continue
			}

			result.ByClientID[id] = folder
			result.Created++

			delete(pending, id)

			progressed = true
		}

		// 无进展说明剩余节点的父永远无法就绪（理论上已被环检测覆盖）
		if !progressed {
			for id, n := range pending {
				result.Failures = append(result.Failures, types.ItemFailure{
					ItemID: id, ItemName: n.desc.Name, Error: "父文件夹无法解析",
				})
			}

			break
		}
	}

	return result, nil
}

// markCycles 检测批内父指针形成的环，环上所有节点标记为失败.
// 顺着 parent 指针走，带访问标记；重入本轮路径即为环.
func (s *FolderService) markCycles(nodes map[string]*stagedNode, result *MaterializeResult) {
	const (
		unvisited = 0
		inPath    = 1
		done      = 2
	)

	state := make(map[*stagedNode]int, len(nodes))

	for _, start := range nodes {
		if state[start] != unvisited {
			continue
		}

		// 记录本轮路径，便于回溯标环
		path := []*stagedNode{}

		n := start
		for n != nil && state[n] == unvisited {
			state[n] = inPath
			path = append(path, n)
			n = n.parent
		}

		if n != nil && state[n] == inPath {
			// 从 n 开始到路径末尾都在环上
			inCycle := false

			for _, p := range path {
				if p == n {
					inCycle = true
				}

				if inCycle && !p.failed {
					p.failed = true
					result.Failures = append(result.Failures, types.ItemFailure{
						ItemID:   p.desc.ClientID,
						ItemName: p.desc.Name,
						Error:    "文件夹层级存在环引用",
					})
				}
			}
		}

		for _, p := range path {
			state[p] = done
		}
	}
}

// failSubtree 将节点及其全部批内后代标记为失败.
func (s *FolderService) failSubtree(root *stagedNode, nodes map[string]*stagedNode, result *MaterializeResult, msg string) {
	if !root.failed {
		root.failed = true
		result.Failures = append(result.Failures, types.ItemFailure{
			ItemID: root.desc.ClientID, ItemName: root.desc.Name, Error: msg,
		})
	}

	// 后代沿 parent 指针可达 root 即失败
	for _, n := range nodes {
		if n.failed {
			continue
		}

		for p := n.parent; p != nil; p = p.parent {
			if p == root {
				n.failed = true
				result.Failures = append(result.Failures, types.ItemFailure{
					ItemID:   n.desc.ClientID,
					ItemName: n.desc.Name,
					Error:    "父文件夹创建失败",
				})

				break
			}
		}
	}
}

// resolveParent 解析节点的父文件夹.
// 返回值：父文件夹（根为 nil）、父是否已就绪、不可恢复的拒绝.
func (s *FolderService) resolveParent(ctx context.Context, link *model.Link, n *stagedNode, result *MaterializeResult) (*model.Folder, bool, *types.ItemFailure) {
	// 批内父：等它先物化
	if n.parent != nil {
		if n.parent.failed {
			return nil, false, &types.ItemFailure{
				ItemID: n.desc.ClientID, ItemName: n.desc.Name, Error: "父文件夹创建失败",
			}
		}

		pf, ok := result.ByClientID[n.parent.desc.ClientID]
		if !ok {
			return nil, false, nil
		}

		return pf, true, nil
	}

	// 无父引用：挂到链接根；generated 链接挂到来源文件夹
	if n.desc.ParentClientID == "" {
		if link.Type == model.LinkTypeGenerated && link.SourceFolderID != nil {
			pf, err := s.loadFolder(ctx, *link.SourceFolderID)
			if err != nil {
				return nil, false, &types.ItemFailure{
					ItemID: n.desc.ClientID, ItemName: n.desc.Name,
					Error: "来源文件夹不存在",
				}
			}

			return pf, true, nil
		}

		return nil, true, nil
	}

	// 批外父：按真实 ID 从 DB 解析
	pf, err := s.loadFolder(ctx, n.desc.ParentClientID)
	if err != nil {
		return nil, false, &types.ItemFailure{
			ItemID: n.desc.ClientID, ItemName: n.desc.Name,
			Error: fmt.Sprintf("父文件夹 %s 不存在", n.desc.ParentClientID),
		}
	}

	return pf, true, nil
}

// loadFolder 按 ID 加载已存在的文件夹.
func (s *FolderService) loadFolder(ctx context.Context, id string) (*model.Folder, error) {
	var folder model.Folder
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&folder).Error; err != nil {
		return nil, fmt.Errorf("load folder %s: %w", id, err)
	}

	return &folder, nil
}

// loadLinkFolder 按真实 ID 加载文件夹并校验归属：
// generated 链接校验工作区，其余校验链接本身.
func loadLinkFolder(ctx context.Context, db *gorm.DB, link *model.Link, folderID string) (*model.Folder, error) {
	q := db.WithContext(ctx).Where("id = ?", folderID)

	if link.Type == model.LinkTypeGenerated {
		q = q.Where("workspace_id = ?", link.UserID)
	} else {
		q = q.Where("link_id = ?", link.ID)
	}

	var folder model.Folder
	if err := q.First(&folder).Error; err != nil {
		return nil, fmt.Errorf("load folder %s for link %s: %w", folderID, link.ID, err)
	}

	return &folder, nil
}

// createFolder 创建单个文件夹行，固化深度与物化路径.
func (s *FolderService) createFolder(ctx context.Context, link *model.Link, batchID string, desc *types.StagedFolder, parent *model.Folder, now time.Time) (*model.Folder, error) {
	name := sanitizeFolderName(desc.Name)
	if name == "" {
		return nil, fmt.Errorf("invalid folder name %q", desc.Name)
	}

	// 根层路径即名称本身，子层为 父路径/名称
	depth := 0
	path := name

	var parentID *string

	if parent != nil {
		depth = parent.Depth + 1
		path = parent.Path + "/" + name
		pid := parent.ID
		parentID = &pid
	}

	if depth > maxFolderDepth {
		return nil, fmt.Errorf("folder depth %d exceeds limit %d", depth, maxFolderDepth)
	}

	folder := &model.Folder{
		ID:        newFolderID(now),
		Name:      name,
		Path:      path,
		Depth:     depth,
		SortOrder: desc.SortOrder,
		ParentID:  parentID,
	}

	if batchID != "" {
		bid := batchID
		folder.BatchID = &bid
	}

	// generated 链接的文件夹归属工作区，其余归属链接
	if link.Type == model.LinkTypeGenerated {
		uid := link.UserID
		folder.WorkspaceID = &uid
	} else {
		lid := link.ID
		folder.LinkID = &lid
	}

	if err := s.db.WithContext(ctx).Create(folder).Error; err != nil {
		return nil, fmt.Errorf("create folder %s: %w", name, err)
	}

	if configs.GetConfig().Events.Enabled {
		publishEvent(&s.clients, queue.TopicFolderCreated, queue.FolderCreatedPayload{
			Folder: queue.FolderRef{
				FolderID: folder.ID,
				LinkID:   link.ID,
				ParentID: derefOr(folder.ParentID, ""),
				Name:     folder.Name,
				Path:     folder.Path,
				Depth:    folder.Depth,
			},
			BatchID: batchID,
		})
	}

	return folder, nil
}

// sanitizeFolderName 清理文件夹名：去除路径分隔符与首尾空白.
func sanitizeFolderName(name string) string {
	cleaned := strings.TrimSpace(name)
	cleaned = strings.ReplaceAll(cleaned, "/", "_")
	cleaned = strings.ReplaceAll(cleaned, "\\", "_")

	if cleaned == "." || cleaned == ".." {
		return ""
	}

	return cleaned
}

// derefOr 解引用指针，nil 返回默认值.
func derefOr(p *string, def string) string {
	if p == nil {
		return def
	}

	return *p
}
