package onedrive

import (
	"encoding/base64"
	"net/url"
	"strings"
)

// EscapePath turns a logical path into an escaped path relative to the
// drive root. Leading, trailing and repeated slashes are dropped.
func EscapePath(p string) string {
	var segs []string
	for _, s := range strings.Split(p, "/") {
		if s == "" {
			continue
		}
		segs = append(segs, url.PathEscape(s))
	}
	return strings.Join(segs, "/")
}

// ShareToken encodes a shared-link URL into the "u!" sharing token form.
func ShareToken(sharedURL string) string {
	return "u!" + base64.RawURLEncoding.EncodeToString([]byte(sharedURL))
}

// rootAddress addresses path under the drive root, or the root itself.
func rootAddress(driveID, p string) string {
	base := "/drives/" + url.PathEscape(driveID) + "/root"
	if esc := EscapePath(p); esc != "" {
		return base + ":/" + esc + ":"
	}
	return base
}

func itemAddress(driveID, itemID string) string {
	return "/drives/" + url.PathEscape(driveID) + "/items/" + url.PathEscape(itemID)
}

// searchSegment builds search(q='...') with single quotes doubled.
func searchSegment(query string) string {
	return "search(q='" + url.PathEscape(strings.ReplaceAll(query, "'", "''")) + "')"
}

// displayPath strips the "/drive/root:" (or "/drives/{id}/root:") prefix
// Graph puts on parent references.
func displayPath(parent string) string {
	if i := strings.Index(parent, "root:"); i >= 0 {
		return parent[i+len("root:"):]
	}
	return parent
}

func joinPath(parent, name string) string {
	return strings.TrimRight(parent, "/") + "/" + name
}
