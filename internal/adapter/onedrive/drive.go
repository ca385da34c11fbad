// Package onedrive implements adapter.Drive on the Microsoft Graph drive API
// for a single configured user.
package onedrive

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"sync"

	"github.com/jun/drivegate/internal/adapter"
	"github.com/jun/drivegate/internal/graph"
)

// API is the part of *graph.Client used by the adapter.
type API interface {
	GetJSON(ctx context.Context, rawURL string, params url.Values, out any) error
	GetContent(ctx context.Context, rawURL string) ([]byte, error)
}

// DriveAdapter implements adapter.Drive for one user's OneDrive.
// The default drive id is looked up once and then reused.
type DriveAdapter struct {
	api  API
	user string

	mu      sync.RWMutex
	driveID string
}

// NewDriveAdapter creates a DriveAdapter for user (UPN or object id).
func NewDriveAdapter(api API, user string) *DriveAdapter {
	return &DriveAdapter{api: api, user: user}
}

// DefaultDriveID returns the user's default drive id, fetching it on first use.
// The lookup runs without the lock; concurrent first callers may each fetch
// it and the first stored id wins.
func (d *DriveAdapter) DefaultDriveID(ctx context.Context) (string, error) {
	d.mu.RLock()
	id := d.driveID
	d.mu.RUnlock()
	if id != "" {
		return id, nil
	}

	var drv graph.Drive
	if err := d.api.GetJSON(ctx, d.userAddress()+"/drive", nil, &drv); err != nil {
		return "", fmt.Errorf("failed to resolve default drive: %w", err)
	}
	if drv.ID == "" {
		return "", fmt.Errorf("graph returned a drive without id for user %q", d.user)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.driveID == "" {
		d.driveID = drv.ID
	}
	return d.driveID, nil
}

// Search runs a drive search, scoped to folder when it is not empty.
func (d *DriveAdapter) Search(ctx context.Context, query, folder string) ([]adapter.RemoteItem, error) {
	driveID, err := d.DefaultDriveID(ctx)
	if err != nil {
		return nil, err
	}
	return d.collect(ctx, rootAddress(driveID, folder)+"/"+searchSegment(query), nil)
}

// ListChildren lists every child of folder, following continuation links.
func (d *DriveAdapter) ListChildren(ctx context.Context, folder string) ([]adapter.RemoteItem, error) {
	driveID, err := d.DefaultDriveID(ctx)
	if err != nil {
		return nil, err
	}
	return d.collect(ctx, rootAddress(driveID, folder)+"/children", nil)
}

// ReadByPath downloads the file at p.
func (d *DriveAdapter) ReadByPath(ctx context.Context, p string) (*adapter.File, error) {
	driveID, err := d.DefaultDriveID(ctx)
	if err != nil {
		return nil, err
	}
	escaped := EscapePath(p)
	if escaped == "" {
		return nil, adapter.ErrIsFolder
	}

	content, err := d.api.GetContent(ctx, rootAddress(driveID, p)+"/content")
	if err != nil {
		return nil, err
	}
	clean := path.Clean("/" + p)
	return &adapter.File{
		RemoteItem: adapter.RemoteItem{
			Name:       path.Base(clean),
			ParentPath: path.Dir(clean),
			Path:       clean,
			Size:       int64(len(content)),
			DriveID:    driveID,
		},
		Content: content,
	}, nil
}

// ReadByID fetches item metadata and content. An empty driveID means the
// user's default drive.
func (d *DriveAdapter) ReadByID(ctx context.Context, driveID, itemID string) (*adapter.File, error) {
	if driveID == "" {
		var err error
		if driveID, err = d.DefaultDriveID(ctx); err != nil {
			return nil, err
		}
	}

	addr := itemAddress(driveID, itemID)
	var item graph.DriveItem
	if err := d.api.GetJSON(ctx, addr, nil, &item); err != nil {
		return nil, err
	}
	if item.IsFolder() {
		return nil, adapter.ErrIsFolder
	}

	content, err := d.api.GetContent(ctx, addr+"/content")
	if err != nil {
		return nil, err
	}
	ri := toRemoteItem(item)
	if ri.DriveID == "" {
		ri.DriveID = driveID
	}
	return &adapter.File{RemoteItem: ri, Content: content}, nil
}

// ResolveShare resolves a shared link. Folders come back with their
// immediate children.
func (d *DriveAdapter) ResolveShare(ctx context.Context, sharedURL string) (*adapter.SharedItem, error) {
	addr := "/shares/" + ShareToken(sharedURL) + "/driveItem"

	var item graph.DriveItem
	if err := d.api.GetJSON(ctx, addr, nil, &item); err != nil {
		return nil, err
	}
	out := &adapter.SharedItem{Item: toRemoteItem(item)}
	if !item.IsFolder() {
		return out, nil
	}

	children, err := d.collect(ctx, addr+"/children", nil)
	if err != nil {
		return nil, err
	}
	out.Children = children
	return out, nil
}

// DriveInfo reports the user principal name, the drive id and the names of
// at most ten root items.
func (d *DriveAdapter) DriveInfo(ctx context.Context) (*adapter.DriveInfo, error) {
	var user graph.User
	if err := d.api.GetJSON(ctx, d.userAddress(), nil, &user); err != nil {
		return nil, err
	}
	driveID, err := d.DefaultDriveID(ctx)
	if err != nil {
		return nil, err
	}

	var page graph.ItemPage
	if err := d.api.GetJSON(ctx, rootAddress(driveID, "")+"/children", url.Values{"$top": {"10"}}, &page); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(page.Value))
	for _, it := range page.Value {
		names = append(names, it.Name)
	}
	return &adapter.DriveInfo{
		UserPrincipalName: user.UserPrincipalName,
		DriveID:           driveID,
		RootItems:         names,
	}, nil
}

// collect follows @odata.nextLink until exhausted and concatenates the pages.
func (d *DriveAdapter) collect(ctx context.Context, addr string, params url.Values) ([]adapter.RemoteItem, error) {
	items := []adapter.RemoteItem{}
	next := addr
	for next != "" {
		var page graph.ItemPage
		if err := d.api.GetJSON(ctx, next, params, &page); err != nil {
			return nil, err
		}
		for _, it := range page.Value {
			items = append(items, toRemoteItem(it))
		}
		// Continuation links already carry the query.
		params = nil
		next = page.NextLink
	}
	return items, nil
}

func (d *DriveAdapter) userAddress() string {
	return "/users/" + url.PathEscape(d.user)
}

func toRemoteItem(it graph.DriveItem) adapter.RemoteItem {
	parent := displayPath(it.ParentReference.Path)
	return adapter.RemoteItem{
		ID:         it.ID,
		Name:       it.Name,
		ParentPath: parent,
		Path:       joinPath(parent, it.Name),
		Size:       it.Size,
		WebURL:     it.WebURL,
		IsFolder:   it.IsFolder(),
		DriveID:    it.ParentReference.DriveID,
	}
}

var _ adapter.Drive = (*DriveAdapter)(nil)
