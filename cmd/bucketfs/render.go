package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"bucketfs/pkg/models"
	"bucketfs/pkg/tree"
)

var (
	folderColor = color.New(color.FgBlue, color.Bold)
	orphanColor = color.New(color.FgYellow)
	lazyColor   = color.New(color.Faint)
)

// renderTree prints node and its descendants with two-space indentation.
func renderTree(w io.Writer, node *models.TreeNode) error {
	var err error
	tree.Walk(node, func(n *models.TreeNode, depth int) {
		if err != nil {
			return
		}
		indent := strings.Repeat("  ", depth)

		switch n.Kind {
		case models.KindFolder:
			_, err = folderColor.Fprintf(w, "%s%s/", indent, n.Name)
			if err == nil && n.Lazy {
				_, err = lazyColor.Fprint(w, " ...")
			}
		default:
			size := ""
			if n.File != nil {
				size = humanize.IBytes(uint64(n.File.Size))
			}
			_, err = fmt.Fprintf(w, "%s%s (%s)", indent, n.Name, size)
		}
		if err == nil && n.Orphan {
			_, err = orphanColor.Fprint(w, " [orphan]")
		}
		if err == nil {
			_, err = fmt.Fprintln(w)
		}
	})
	return err
}

// renderListing prints the folders then files of one directory level.
func renderListing(w io.Writer, listing *models.Listing) error {
	crumbs := make([]string, 0, len(listing.Breadcrumbs))
	for _, b := range listing.Breadcrumbs {
		crumbs = append(crumbs, b.Name)
	}
	if _, err := fmt.Fprintln(w, strings.Join(crumbs, " / ")); err != nil {
		return err
	}

	for _, folder := range listing.Folders {
		if _, err := folderColor.Fprintf(w, "  %s/\n", folder.Name); err != nil {
			return err
		}
	}
	for _, file := range listing.Files {
		_, err := fmt.Fprintf(w, "  %-40s %10s  %-24s %s\n", file.OriginalName,
			humanize.IBytes(uint64(file.Size)), file.MimeType, humanize.Time(file.UpdatedAt))
		if err != nil {
			return err
		}
	}
	return nil
}
