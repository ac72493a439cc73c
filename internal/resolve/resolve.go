// Package resolve rewrites document viewer links into direct-download URLs.
package resolve

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrNoFileID is returned for a viewer link whose file identifier is missing.
var ErrNoFileID = eris.New("resolve: no file id in viewer link")

// fileIDPath matches the identifier segment of viewer paths such as
// /file/d/<id>/view and /document/u/0/d/<id>/edit.
var fileIDPath = regexp.MustCompile(`/d/([A-Za-z0-9_-]+)`)

// DownloadURL returns a fetchable URL for link. Drive and Docs viewer links
// are rewritten to their export form; any other link is returned unmodified.
func DownloadURL(link string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil {
		return "", eris.Wrapf(err, "resolve: parse %s", link)
	}
	host := strings.ToLower(u.Host)

	switch {
	case host == "drive.google.com" && strings.HasPrefix(u.Path, "/file/"):
		m := fileIDPath.FindStringSubmatch(u.Path)
		if m == nil {
			return "", eris.Wrapf(ErrNoFileID, "link %s", link)
		}
		return driveDownload(m[1]), nil

	case host == "drive.google.com" && (u.Path == "/open" || u.Path == "/uc"):
		id := u.Query().Get("id")
		if id == "" {
			return "", eris.Wrapf(ErrNoFileID, "link %s", link)
		}
		return driveDownload(id), nil

	case host == "docs.google.com" && strings.HasPrefix(u.Path, "/document/"):
		m := fileIDPath.FindStringSubmatch(u.Path)
		if m == nil {
			return "", eris.Wrapf(ErrNoFileID, "link %s", link)
		}
		return "https://docs.google.com/document/d/" + m[1] + "/export?format=pdf", nil
	}

	return link, nil
}

func driveDownload(id string) string {
	return "https://drive.google.com/uc?export=download&id=" + url.QueryEscape(id)
}
