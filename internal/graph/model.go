package graph

// DriveItem is the subset of the Graph driveItem resource we read.
type DriveItem struct {
	ID              string        `json:"id"`
	Name            string        `json:"name"`
	Size            int64         `json:"size"`
	WebURL          string        `json:"webUrl"`
	ParentReference ItemReference `json:"parentReference"`
	Folder          *FolderFacet  `json:"folder,omitempty"`
	File            *FileFacet    `json:"file,omitempty"`
}

// IsFolder reports whether the item has a folder facet.
func (d DriveItem) IsFolder() bool {
	return d.Folder != nil
}

type ItemReference struct {
	DriveID string `json:"driveId"`
	ID      string `json:"id"`
	Path    string `json:"path"`
}

type FolderFacet struct {
	ChildCount int `json:"childCount"`
}

type FileFacet struct {
	MimeType string `json:"mimeType"`
}

// ItemPage is one page of a collection response.
type ItemPage struct {
	Value    []DriveItem `json:"value"`
	NextLink string      `json:"@odata.nextLink,omitempty"`
}

type Drive struct {
	ID        string `json:"id"`
	DriveType string `json:"driveType"`
}

type User struct {
	ID                string `json:"id"`
	DisplayName       string `json:"displayName"`
	UserPrincipalName string `json:"userPrincipalName"`
}
