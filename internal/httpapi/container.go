package httpapi

import (
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pytivogo/bridge/internal/config"
	"github.com/pytivogo/bridge/internal/registry"
	"github.com/pytivogo/bridge/internal/tvxml"
)

// DirLister builds TiVoContainer XML documents from the configured shares
// and their backing directories, per spec.md §4.3's QueryContainer
// behavior (plugins/video/video.py's get_files/allow_recurse).
type DirLister struct {
	Shares *registry.ShareRegistry
}

// RootContainer lists every share whose content type is an enumerable
// container (tivo-videos/tivo-music/tivo-photos), answering
// `QueryContainer&Container=/`.
func (d *DirLister) RootContainer() tvxml.Container {
	shares := d.Shares.Containers()
	c := tvxml.Container{Title: "pytivogo", TotalItems: len(shares), ItemCount: len(shares)}
	for _, s := range shares {
		url := "/TiVoConnect?Command=QueryContainer&Container=" + s.Name
		c.Items = append(c.Items, tvxml.Item{
			Details: tvxml.ItemDetails{Title: s.Name, ContentType: s.ContentType(), IsDir: true},
			Links:   []tvxml.Link{{Content: "video", Url: url, ContentType: s.ContentType()}},
		})
	}
	return c
}

// ShareContainer lists share's directory at relPath, honoring recursion
// (spec.md §4.3's directory recursion/alpha sort options).
func (d *DirLister) ShareContainer(share config.Share, relPath string, paging tvxml.Paging) (tvxml.Container, error) {
	root := share.Path

	base := filepath.Join(root, filepath.FromSlash(relPath))
	recurse := paging.Recurse || share.Recurse.Enabled

	var entries []itemEntry
	if recurse {
		err := filepath.WalkDir(base, func(p string, d2 os.DirEntry, err error) error {
			if err != nil {
				return nil // skip unreadable entries rather than fail the whole listing
			}
			if p == base {
				return nil
			}
			info, err := d2.Info()
			if err != nil {
				return nil
			}
			rel, _ := filepath.Rel(root, p)
			entries = append(entries, itemEntry{relURL: filepath.ToSlash(rel), isDir: d2.IsDir(), size: info.Size()})
			return nil
		})
		if err != nil {
			return tvxml.Container{}, err
		}
	} else {
		dirEntries, err := os.ReadDir(base)
		if err != nil {
			return tvxml.Container{}, err
		}
		for _, e := range dirEntries {
			info, err := e.Info()
			if err != nil {
				continue
			}
			rel := path.Join(relPath, e.Name())
			entries = append(entries, itemEntry{relURL: rel, isDir: e.IsDir(), size: info.Size()})
		}
	}

	if share.AlphaSort || paging.SortOrder == tvxml.SortAlphabetical || paging.SortOrder == tvxml.SortAlphabeticalRev {
		sort.Slice(entries, func(i, j int) bool { return entries[i].relURL < entries[j].relURL })
		if paging.SortOrder == tvxml.SortAlphabeticalRev {
			for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
				entries[i], entries[j] = entries[j], entries[i]
			}
		}
	}

	entries = applyPaging(entries, paging)

	c := tvxml.Container{Title: share.Name, TotalItems: len(entries), ItemCount: len(entries)}
	for _, e := range entries {
		c.Items = append(c.Items, e.toItem(share))
	}
	return c, nil
}

type itemEntry struct {
	relURL string
	isDir  bool
	size   int64
}

func (e itemEntry) toItem(share config.Share) tvxml.Item {
	contentType := share.ContentType()
	if e.isDir {
		contentType = "x-tivo-container/folder"
	}
	url := "/TiVoConnect?Command=QueryItem&Url=/" + share.Name + "/" + e.relURL
	return tvxml.Item{
		Details: tvxml.ItemDetails{
			Title:       filepath.Base(e.relURL),
			ContentType: contentType,
			SourceSize:  e.size,
			IsDir:       e.isDir,
		},
		Links: []tvxml.Link{
			{Content: "video", Url: url, ContentType: contentType},
		},
	}
}

// applyPaging implements spec.md §4.3's ItemCount/AnchorItem/AnchorOffset
// semantics: AnchorItem positions the window, AnchorOffset shifts it
// relative to the anchor, and ItemCount (-1 = unbounded) caps its size.
func applyPaging(entries []itemEntry, p tvxml.Paging) []itemEntry {
	start := 0
	if p.AnchorItem != "" {
		anchor := strings.TrimPrefix(p.AnchorItem, "/")
		for i, e := range entries {
			if e.relURL == anchor {
				start = i
				break
			}
		}
	}
	start += p.AnchorOffset
	if start < 0 {
		start = 0
	}
	if start > len(entries) {
		start = len(entries)
	}
	entries = entries[start:]

	if p.ItemCount >= 0 && p.ItemCount < len(entries) {
		entries = entries[:p.ItemCount]
	}
	return entries
}
