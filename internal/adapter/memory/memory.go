// Package memory is an in-memory adapter.Drive used in dev mode and tests.
package memory

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jun/drivegate/internal/adapter"
)

// DriveID is the id reported by every MemoryAdapter.
const DriveID = "memory-drive"

const (
	maxDemoContentSize = 4 << 20 // 4MB
	maxDemoItemCount   = 500
)

type entry struct {
	item    adapter.RemoteItem
	content []byte
}

// MemoryAdapter implements adapter.Drive over a map of paths.
// Folders are created implicitly when a file is put below them.
type MemoryAdapter struct {
	owner string

	mu     sync.RWMutex
	byPath map[string]*entry
	byID   map[string]*entry
	shares map[string]string
}

// NewMemoryAdapter creates an empty drive owned by owner.
func NewMemoryAdapter(owner string) *MemoryAdapter {
	return &MemoryAdapter{
		owner:  owner,
		byPath: make(map[string]*entry),
		byID:   make(map[string]*entry),
		shares: make(map[string]string),
	}
}

// Put stores content at p, creating parent folders. It returns the item.
func (m *MemoryAdapter) Put(p string, content []byte) (adapter.RemoteItem, error) {
	clean := cleanPath(p)
	if clean == "/" {
		return adapter.RemoteItem{}, fmt.Errorf("cannot put content at the root")
	}
	if len(content) > maxDemoContentSize {
		return adapter.RemoteItem{}, fmt.Errorf("content too large: %d bytes (max %d)", len(content), maxDemoContentSize)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.byPath) >= maxDemoItemCount {
		return adapter.RemoteItem{}, fmt.Errorf("item limit reached (max %d)", maxDemoItemCount)
	}
	if e, ok := m.byPath[clean]; ok && e.item.IsFolder {
		return adapter.RemoteItem{}, adapter.ErrIsFolder
	}
	m.ensureFolderLocked(path.Dir(clean))

	e, ok := m.byPath[clean]
	if !ok {
		e = &entry{item: newItem(clean, false)}
		m.byPath[clean] = e
		m.byID[e.item.ID] = e
	}
	e.content = append([]byte(nil), content...)
	e.item.Size = int64(len(content))
	return e.item, nil
}

// Share registers sharedURL as a link to the item at p.
func (m *MemoryAdapter) Share(sharedURL, p string) error {
	clean := cleanPath(p)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byPath[clean]; !ok {
		return adapter.ErrNotFound
	}
	m.shares[sharedURL] = clean
	return nil
}

func (m *MemoryAdapter) ensureFolderLocked(dir string) {
	if dir == "/" {
		return
	}
	if _, ok := m.byPath[dir]; ok {
		return
	}
	m.ensureFolderLocked(path.Dir(dir))
	e := &entry{item: newItem(dir, true)}
	m.byPath[dir] = e
	m.byID[e.item.ID] = e
}

func newItem(clean string, folder bool) adapter.RemoteItem {
	parent := path.Dir(clean)
	if parent == "/" {
		parent = ""
	}
	return adapter.RemoteItem{
		ID:         uuid.New().String(),
		Name:       path.Base(clean),
		ParentPath: parent,
		Path:       clean,
		IsFolder:   folder,
		DriveID:    DriveID,
	}
}

func cleanPath(p string) string {
	return path.Clean("/" + strings.Trim(p, "/"))
}

// Search matches query case-insensitively against item names below folder.
func (m *MemoryAdapter) Search(_ context.Context, query, folder string) ([]adapter.RemoteItem, error) {
	scope := cleanPath(folder)
	q := strings.ToLower(query)

	m.mu.RLock()
	defer m.mu.RUnlock()

	if scope != "/" {
		if e, ok := m.byPath[scope]; !ok || !e.item.IsFolder {
			return nil, adapter.ErrNotFound
		}
	}

	results := []adapter.RemoteItem{}
	for p, e := range m.byPath {
		if scope != "/" && !strings.HasPrefix(p, scope+"/") {
			continue
		}
		if strings.Contains(strings.ToLower(e.item.Name), q) {
			results = append(results, e.item)
		}
	}
	sortByPath(results)
	return results, nil
}

// ListChildren lists the immediate children of folder.
func (m *MemoryAdapter) ListChildren(_ context.Context, folder string) ([]adapter.RemoteItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.childrenLocked(cleanPath(folder))
}

func (m *MemoryAdapter) childrenLocked(dir string) ([]adapter.RemoteItem, error) {
	if dir != "/" {
		e, ok := m.byPath[dir]
		if !ok {
			return nil, adapter.ErrNotFound
		}
		if !e.item.IsFolder {
			return nil, fmt.Errorf("%s is not a folder", dir)
		}
	}

	children := []adapter.RemoteItem{}
	for p, e := range m.byPath {
		if path.Dir(p) == dir {
			children = append(children, e.item)
		}
	}
	sortByPath(children)
	return children, nil
}

// ReadByPath returns the file stored at p.
func (m *MemoryAdapter) ReadByPath(_ context.Context, p string) (*adapter.File, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.byPath[cleanPath(p)]
	if !ok {
		return nil, adapter.ErrNotFound
	}
	return e.file()
}

// ReadByID returns the file with itemID. Only DriveID (or "") is known.
func (m *MemoryAdapter) ReadByID(_ context.Context, driveID, itemID string) (*adapter.File, error) {
	if driveID != "" && driveID != DriveID {
		return nil, adapter.ErrNotFound
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.byID[itemID]
	if !ok {
		return nil, adapter.ErrNotFound
	}
	return e.file()
}

// ResolveShare resolves a link registered with Share.
func (m *MemoryAdapter) ResolveShare(_ context.Context, sharedURL string) (*adapter.SharedItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.shares[sharedURL]
	if !ok {
		return nil, adapter.ErrNotFound
	}
	e := m.byPath[p]
	out := &adapter.SharedItem{Item: e.item}
	if e.item.IsFolder {
		children, err := m.childrenLocked(p)
		if err != nil {
			return nil, err
		}
		out.Children = children
	}
	return out, nil
}

// DriveInfo reports the owner and up to ten root item names.
func (m *MemoryAdapter) DriveInfo(ctx context.Context) (*adapter.DriveInfo, error) {
	root, err := m.ListChildren(ctx, "")
	if err != nil {
		return nil, err
	}
	if len(root) > 10 {
		root = root[:10]
	}
	names := make([]string, 0, len(root))
	for _, it := range root {
		names = append(names, it.Name)
	}
	return &adapter.DriveInfo{UserPrincipalName: m.owner, DriveID: DriveID, RootItems: names}, nil
}

func (e *entry) file() (*adapter.File, error) {
	if e.item.IsFolder {
		return nil, adapter.ErrIsFolder
	}
	return &adapter.File{RemoteItem: e.item, Content: append([]byte(nil), e.content...)}, nil
}

func sortByPath(items []adapter.RemoteItem) {
	sort.Slice(items, func(i, j int) bool { return items[i].Path < items[j].Path })
}

var _ adapter.Drive = (*MemoryAdapter)(nil)
