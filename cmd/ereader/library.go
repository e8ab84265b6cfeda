package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yuanying/epubreader/internal/library"
	"github.com/yuanying/epubreader/internal/store"
)

func newLibraryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "library",
		Short: "Manage the book library",
	}
	cmd.AddCommand(
		newLibraryAddCmd(),
		newLibraryListCmd(),
		newLibraryRemoveCmd(),
		newLibraryProgressCmd(),
		newLibraryReadCmd(),
	)
	return cmd
}

func openLibrary(e *env) (*library.Library, error) {
	st, err := e.store()
	if err != nil {
		return nil, err
	}
	return library.New(st, e.log), nil
}

func newLibraryAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <book.epub>...",
		Short: "Add books to the library",
		Args:  cobra.MinimumNArgs(1),
		RunE: run(func(cmd *cobra.Command, args []string, e *env) error {
			lib, err := openLibrary(e)
			if err != nil {
				return err
			}
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("failed to read %s: %w", path, err)
				}
				book, err := lib.Add(cmd.Context(), path, data)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", book.ID, book.Metadata.Title)
			}
			return nil
		}),
	}
}

func newLibraryListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List books, most recently read first",
		Args:  cobra.NoArgs,
		RunE: run(func(cmd *cobra.Command, args []string, e *env) error {
			lib, err := openLibrary(e)
			if err != nil {
				return err
			}
			recent, _ := cmd.Flags().GetBool("recent")
			var books []library.Book
			if recent {
				books, err = lib.Recent(cmd.Context())
			} else {
				books, err = lib.Sorted(cmd.Context())
			}
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tAUTHOR\tCHAPTER\tLAST OPENED")
			for _, b := range books {
				opened := "-"
				if b.LastOpened != nil {
					opened = b.LastOpened.Local().Format("2006-01-02 15:04")
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", b.ID, b.Metadata.Title, b.Metadata.Author, b.Progress.CurrentChapter, opened)
			}
			return tw.Flush()
		}),
	}
	cmd.Flags().Bool("recent", false, "Only show recently read books")
	return cmd
}

func newLibraryRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <book-id>",
		Short: "Remove a book and its reading data",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(cmd *cobra.Command, args []string, e *env) error {
			lib, err := openLibrary(e)
			if err != nil {
				return err
			}
			ctx, id := cmd.Context(), args[0]
			removed, err := lib.Remove(ctx, id)
			if err != nil {
				return err
			}
			if !removed {
				return fmt.Errorf("book %s not found", id)
			}

			st, _ := e.store()
			if err := store.NewBookmarks(st).Clear(ctx, id); err != nil {
				return err
			}
			if err := store.NewChats(st).Clear(ctx, id); err != nil {
				return err
			}
			if _, err := store.NewNotebooks(st).Remove(ctx, id); err != nil {
				return err
			}
			if err := store.NewMindMaps(st).RemoveBook(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", id)
			return nil
		}),
	}
}

func newLibraryProgressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "progress <book-id> <chapter> [scroll]",
		Short: "Record the reading position",
		Args:  cobra.RangeArgs(2, 3),
		RunE: run(func(cmd *cobra.Command, args []string, e *env) error {
			chapter, err := parseIndex(args[1])
			if err != nil {
				return err
			}
			var scroll float64
			if len(args) == 3 {
				if scroll, err = strconv.ParseFloat(args[2], 64); err != nil {
					return fmt.Errorf("invalid scroll position %q", args[2])
				}
			}
			lib, err := openLibrary(e)
			if err != nil {
				return err
			}
			ok, err := lib.UpdateProgress(cmd.Context(), args[0], chapter, scroll)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("book %s not found", args[0])
			}
			return nil
		}),
	}
}

func newLibraryReadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "read <book-id> [chapter]",
		Short: "Render a chapter of a library book with numbered paragraphs and bookmarks",
		Args:  cobra.RangeArgs(1, 2),
		RunE: run(func(cmd *cobra.Command, args []string, e *env) error {
			ctx, id := cmd.Context(), args[0]
			lib, err := openLibrary(e)
			if err != nil {
				return err
			}
			rec, found, err := lib.Get(ctx, id)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("book %s not found", id)
			}
			index := rec.Progress.CurrentChapter
			if len(args) == 2 {
				if index, err = parseIndex(args[1]); err != nil {
					return err
				}
			}

			book, err := lib.Open(ctx, id, e.bookOptions()...)
			if err != nil {
				return err
			}
			st, _ := e.store()
			marks, err := store.NewBookmarks(st).Paragraphs(ctx, id, index)
			if err != nil {
				return err
			}

			s := e.session(book)
			defer s.Close()
			if err := s.Prefetch(ctx, index); err != nil {
				return err
			}
			view, err := s.View(index, true, func(n int) bool { return marks[n] })
			if err != nil {
				return err
			}
			text, _ := cmd.Flags().GetBool("text")
			printView(cmd.OutOrStdout(), view.Chapter, view.HTML, text, false)

			if _, err := lib.UpdateProgress(ctx, id, index, 0); err != nil {
				return err
			}
			return nil
		}),
	}
	cmd.Flags().Bool("text", false, "Print plain text instead of markup")
	return cmd
}

func newBookmarkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bookmark",
		Short: "Manage bookmarks of library books",
	}
	cmd.AddCommand(newBookmarkAddCmd(), newBookmarkListCmd(), newBookmarkRemoveCmd())
	return cmd
}

func newBookmarkAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <book-id> <chapter> <paragraph>",
		Short: "Bookmark a paragraph",
		Args:  cobra.ExactArgs(3),
		RunE: run(func(cmd *cobra.Command, args []string, e *env) error {
			chapter, err := parseIndex(args[1])
			if err != nil {
				return err
			}
			paragraph, err := strconv.Atoi(args[2])
			if err != nil || paragraph < 1 {
				return fmt.Errorf("invalid paragraph number %q", args[2])
			}
			note, _ := cmd.Flags().GetString("note")

			st, err := e.store()
			if err != nil {
				return err
			}
			bm, err := store.NewBookmarks(st).Save(cmd.Context(), args[0], store.Bookmark{
				ChapterIndex:    chapter,
				ParagraphNumber: paragraph,
				Note:            note,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), bm.ID)
			return nil
		}),
	}
	cmd.Flags().String("note", "", "Note attached to the bookmark")
	return cmd
}

func newBookmarkListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <book-id>",
		Short: "List bookmarks in reading order",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(cmd *cobra.Command, args []string, e *env) error {
			st, err := e.store()
			if err != nil {
				return err
			}
			list, err := store.NewBookmarks(st).List(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCHAPTER\tPARAGRAPH\tNOTE")
			for _, bm := range list {
				fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", bm.ID, bm.ChapterIndex, bm.ParagraphNumber, bm.Note)
			}
			return tw.Flush()
		}),
	}
}

func newBookmarkRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <book-id> <bookmark-id>",
		Short: "Remove a bookmark",
		Args:  cobra.ExactArgs(2),
		RunE: run(func(cmd *cobra.Command, args []string, e *env) error {
			st, err := e.store()
			if err != nil {
				return err
			}
			ok, err := store.NewBookmarks(st).Remove(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("bookmark %s not found", args[1])
			}
			return nil
		}),
	}
}
