package adapter

import (
	"context"
)

// RemoteItem is a read-only projection of a drive file or folder.
type RemoteItem struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	ParentPath string `json:"parentPath"`
	Path       string `json:"path"`
	Size       int64  `json:"size"`
	WebURL     string `json:"webUrl,omitempty"`
	IsFolder   bool   `json:"isFolder"`
	DriveID    string `json:"driveId,omitempty"`
}

// File is a downloaded file with its metadata.
type File struct {
	RemoteItem
	Content []byte `json:"-"`
}

// SharedItem is the target of a shared link. Children is set for folders.
type SharedItem struct {
	Item     RemoteItem   `json:"item"`
	Children []RemoteItem `json:"children,omitempty"`
}

// DriveInfo describes the configured user's default drive.
type DriveInfo struct {
	UserPrincipalName string   `json:"userPrincipalName"`
	DriveID           string   `json:"driveId"`
	RootItems         []string `json:"rootItems"`
}

// Drive is the read-only view of a remote drive used by the gateway.
// Paths are logical, slash-separated and unescaped; implementations
// handle escaping. Listings preserve the order given by the backend.
type Drive interface {
	// Search finds items matching query, optionally scoped to folder.
	Search(ctx context.Context, query, folder string) ([]RemoteItem, error)

	// ListChildren lists the immediate children of folder ("" is the root).
	ListChildren(ctx context.Context, folder string) ([]RemoteItem, error)

	// ReadByPath downloads the file at path.
	ReadByPath(ctx context.Context, path string) (*File, error)

	// ReadByID downloads an item by id. An empty driveID means the default drive.
	ReadByID(ctx context.Context, driveID, itemID string) (*File, error)

	// ResolveShare resolves a shared-link URL to its item.
	ResolveShare(ctx context.Context, sharedURL string) (*SharedItem, error)

	// DriveInfo reports the owner, the drive id and a few root item names.
	DriveInfo(ctx context.Context) (*DriveInfo, error)
}
