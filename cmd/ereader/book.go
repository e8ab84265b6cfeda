package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yuanying/epubreader/internal/bookcontent"
	"github.com/yuanying/epubreader/internal/epub"
)

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <book.epub>",
		Short: "Show book metadata",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(cmd *cobra.Command, args []string, e *env) error {
			book, err := e.openFile(args[0])
			if err != nil {
				return err
			}
			printInfo(cmd.OutOrStdout(), book)
			return nil
		}),
	}
}

func printInfo(w io.Writer, book *epub.Book) {
	md := book.BookMetadata()
	field := func(name, value string) {
		if value != "" {
			fmt.Fprintf(w, "%-12s %s\n", name+":", value)
		}
	}
	field("Title", md.Title)
	field("Author", md.Author)
	field("Publisher", md.Publisher)
	field("Language", md.Language)
	field("Identifier", md.Identifier)
	field("Date", md.Date)
	field("Rights", md.Rights)
	field("Version", md.Version)
	field("Subjects", strings.Join(md.Subjects, ", "))
	field("Chapters", strconv.Itoa(book.ChapterCount()))
	if cover := book.DetectCover(); cover != nil {
		field("Cover", fmt.Sprintf("%s (%s)", cover.Href, cover.DetectionMethod))
	}
	if md.Description != "" {
		fmt.Fprintf(w, "\n%s\n", md.Description)
	}
}

func newTocCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "toc <book.epub>",
		Short: "Print the table of contents",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(cmd *cobra.Command, args []string, e *env) error {
			book, err := e.openFile(args[0])
			if err != nil {
				return err
			}
			tree, _ := cmd.Flags().GetBool("tree")
			nodes := book.TOC()
			if tree {
				nodes = book.TOCTree()
			}
			if len(nodes) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No table of contents")
				return nil
			}
			printTOC(cmd.OutOrStdout(), book, nodes, 0)
			return nil
		}),
	}
	cmd.Flags().Bool("tree", false, "Keep the nesting of navigation document lists")
	return cmd
}

func printTOC(w io.Writer, book *epub.Book, nodes []epub.TocNode, depth int) {
	for _, n := range nodes {
		target := "-"
		if i := book.IndexOf(n.Href); i != epub.NotFound {
			target = strconv.Itoa(i)
		}
		fmt.Fprintf(w, "%s%s [%s]\n", strings.Repeat("  ", depth), n.Label, target)
		printTOC(w, book, n.Children, depth+1)
	}
}

func newChapterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chapter <book.epub> <index>",
		Short: "Render one chapter",
		Args:  cobra.ExactArgs(2),
		RunE: run(func(cmd *cobra.Command, args []string, e *env) error {
			index, err := parseIndex(args[1])
			if err != nil {
				return err
			}
			book, err := e.openFile(args[0])
			if err != nil {
				return err
			}

			numbered, _ := cmd.Flags().GetBool("numbered")
			text, _ := cmd.Flags().GetBool("text")
			styles, _ := cmd.Flags().GetBool("styles")

			s := e.session(book)
			defer s.Close()
			view, err := s.View(index, numbered, nil)
			if err != nil {
				return err
			}
			printView(cmd.OutOrStdout(), view.Chapter, view.HTML, text, styles)
			return nil
		}),
	}
	cmd.Flags().Bool("numbered", false, "Number paragraphs")
	cmd.Flags().Bool("text", false, "Print plain text instead of markup")
	cmd.Flags().Bool("styles", false, "Print the collected chapter styles")
	return cmd
}

func printView(w io.Writer, ch *epub.Chapter, html string, text, styles bool) {
	fmt.Fprintf(w, "# %s\n\n", ch.Title)
	if styles && ch.Content.Styles != "" {
		fmt.Fprintf(w, "<style>\n%s\n</style>\n\n", ch.Content.Styles)
	}
	if text {
		fmt.Fprintln(w, bookcontent.PlainText(html))
		return
	}
	fmt.Fprintln(w, strings.TrimSpace(html))
}

func newContextCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "context <book.epub>",
		Short: "Print the chat assistant context for a chapter",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(cmd *cobra.Command, args []string, e *env) error {
			book, err := e.openFile(args[0])
			if err != nil {
				return err
			}
			chapter, _ := cmd.Flags().GetInt("chapter")
			full, _ := cmd.Flags().GetBool("full")

			s := e.session(book)
			defer s.Close()
			text, err := s.Context(cmd.Context(), e.cfg.ContextOptions(chapter, full))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		}),
	}
	cmd.Flags().Int("chapter", 0, "Current chapter index")
	cmd.Flags().Bool("full", false, "Send the whole book when it fits")
	return cmd
}

func newCoverCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cover <book.epub>",
		Short: "Extract the cover image",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(cmd *cobra.Command, args []string, e *env) error {
			book, err := e.openFile(args[0])
			if err != nil {
				return err
			}
			res, err := book.CoverImage()
			if err != nil {
				return err
			}
			out, _ := cmd.Flags().GetString("output")
			if out == "" {
				out = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + "-cover" + filepath.Ext(res.Path)
			}
			if err := os.WriteFile(out, res.Data, 0644); err != nil {
				return fmt.Errorf("failed to write cover: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%s, %d bytes)\n", out, res.MediaType, len(res.Data))
			return nil
		}),
	}
	cmd.Flags().StringP("output", "o", "", "Output file path (default: <book>-cover.<ext>)")
	return cmd
}

func parseIndex(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid chapter index %q", s)
	}
	return n, nil
}
