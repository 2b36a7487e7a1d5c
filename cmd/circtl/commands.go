package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/libradesk/circulation-go/circulation"
	"github.com/libradesk/circulation-go/export"
)

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Create the circulation tables if they do not exist",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, func(ctx context.Context, sess *session) error {
				if err := sess.store.CreateSchema(ctx); err != nil {
					return err
				}

				cmd.Println("schema is up to date")

				return nil
			})
		},
	}
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert a small demo data set",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, func(ctx context.Context, sess *session) error {
				if err := sess.store.CreateSchema(ctx); err != nil {
					return err
				}

				return seedDemoData(ctx, cmd, sess)
			})
		},
	}
}

func newIssueCmd() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "issue <book-id> <reader-id>",
		Short: "Issue a book copy to a reader",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bookID, readerID, parseErr := parseTwoIDs(args)
			if parseErr != nil {
				return parseErr
			}

			return withSession(cmd, func(ctx context.Context, sess *session) error {
				loan, err := sess.engine.IssueLoan(ctx, bookID, readerID, time.Duration(days)*24*time.Hour)
				if err != nil {
					return err
				}

				cmd.Printf("loan %s issued, due %s\n", loan.ID, loan.DueAt.Format(time.RFC3339))

				return nil
			})
		},
	}

	cmd.Flags().IntVar(&days, "days", 14, "loan period in days")

	return cmd
}

func newRenewCmd() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "renew <loan-id>",
		Short: "Extend the due date of an active loan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loanID, parseErr := uuid.Parse(args[0])
			if parseErr != nil {
				return fmt.Errorf("invalid loan id: %w", parseErr)
			}

			return withSession(cmd, func(ctx context.Context, sess *session) error {
				loan, err := sess.engine.RenewLoan(ctx, loanID, time.Duration(days)*24*time.Hour)
				if err != nil {
					return err
				}

				cmd.Printf("loan %s renewed, due %s\n", loan.ID, loan.DueAt.Format(time.RFC3339))

				return nil
			})
		},
	}

	cmd.Flags().IntVar(&days, "days", 14, "extension in days")

	return cmd
}

func newReturnCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "return <loan-id>",
		Short: "Return a book copy, assessing an overdue fine if late",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loanID, parseErr := uuid.Parse(args[0])
			if parseErr != nil {
				return fmt.Errorf("invalid loan id: %w", parseErr)
			}

			return withSession(cmd, func(ctx context.Context, sess *session) error {
				loan, err := sess.engine.ReturnLoan(ctx, loanID, time.Time{})
				if err != nil {
					return err
				}

				if loan.FineAmount > 0 {
					cmd.Printf("loan %s returned, fine %s assessed\n", loan.ID, loan.FineAmount)
				} else {
					cmd.Printf("loan %s returned\n", loan.ID)
				}

				return nil
			})
		},
	}
}

func newLostCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lost <loan-id>",
		Short: "Mark a loaned copy as lost, assessing a replacement fine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loanID, parseErr := uuid.Parse(args[0])
			if parseErr != nil {
				return fmt.Errorf("invalid loan id: %w", parseErr)
			}

			return withSession(cmd, func(ctx context.Context, sess *session) error {
				loan, err := sess.engine.MarkLoanLost(ctx, loanID)
				if err != nil {
					return err
				}

				cmd.Printf("loan %s marked lost, replacement fine %s\n", loan.ID, loan.FineAmount)

				return nil
			})
		},
	}
}

func newPayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pay <fine-id>",
		Short: "Pay an outstanding fine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fineID, parseErr := uuid.Parse(args[0])
			if parseErr != nil {
				return fmt.Errorf("invalid fine id: %w", parseErr)
			}

			return withSession(cmd, func(ctx context.Context, sess *session) error {
				fine, err := sess.engine.PayFine(ctx, fineID, time.Time{})
				if err != nil {
					return err
				}

				cmd.Printf("fine %s paid (%s)\n", fine.ID, fine.Amount)

				return nil
			})
		},
	}
}

func newExportCmd() *cobra.Command {
	var (
		format string
		outDir string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the data set as JSON to stdout or CSV files",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, func(ctx context.Context, sess *session) error {
				snapshot, collectErr := export.Collect(ctx, sess.store)
				if collectErr != nil {
					return collectErr
				}

				switch format {
				case "json":
					return export.WriteJSON(os.Stdout, snapshot)
				case "csv":
					if err := export.WriteCSV(outDir, snapshot); err != nil {
						return err
					}

					cmd.Printf("csv files written to %s\n", outDir)

					return nil
				default:
					return fmt.Errorf("unsupported export format: %s", format)
				}
			})
		},
	}

	cmd.Flags().StringVar(&format, "format", "json", "export format: json or csv")
	cmd.Flags().StringVar(&outDir, "out", "export", "output directory for csv format")

	return cmd
}

func parseTwoIDs(args []string) (uuid.UUID, uuid.UUID, error) {
	first, firstErr := uuid.Parse(args[0])
	if firstErr != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("invalid book id: %w", firstErr)
	}

	second, secondErr := uuid.Parse(args[1])
	if secondErr != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("invalid reader id: %w", secondErr)
	}

	return first, second, nil
}

// seedDemoData inserts a small catalog with one reader so the loan commands
// have something to operate on.
func seedDemoData(ctx context.Context, cmd *cobra.Command, sess *session) error {
	now := time.Now().UTC()

	publisher := circulation.Publisher{
		ID:        uuid.New(),
		Name:      "O'Reilly Media, Inc.",
		CreatedAt: now,
	}
	if err := sess.store.AddPublisher(ctx, publisher); err != nil {
		return err
	}

	author := circulation.Author{
		ID:        uuid.New(),
		FirstName: "Vlad",
		LastName:  "Khononov",
		IsActive:  true,
		CreatedAt: now,
	}
	if err := sess.store.AddAuthor(ctx, author); err != nil {
		return err
	}

	genre := circulation.Genre{
		ID:        uuid.New(),
		Name:      "Software Design",
		CreatedAt: now,
	}
	if err := sess.store.AddGenre(ctx, genre); err != nil {
		return err
	}

	publisherID := publisher.ID
	book := circulation.Book{
		ID:              uuid.New(),
		ISBN:            "978-1-098-10013-1",
		Title:           "Learning Domain-Driven Design",
		PublisherID:     &publisherID,
		PublicationYear: 2021,
		PageCount:       551,
		Price:           circulation.MoneyFromFloat(45.99),
		QuantityInStock: 3,
		Language:        "en",
		CreatedAt:       now,
	}
	if err := sess.store.AddBook(ctx, book); err != nil {
		return err
	}

	if err := sess.store.LinkBookAuthor(ctx, book.ID, author.ID); err != nil {
		return err
	}

	if err := sess.store.LinkBookGenre(ctx, book.ID, genre.ID); err != nil {
		return err
	}

	reader := circulation.Reader{
		ID:           uuid.New(),
		FirstName:    "Ada",
		LastName:     "Lovelace",
		Email:        "ada@example.com",
		IsActive:     true,
		RegisteredAt: now,
	}
	if err := sess.store.AddReader(ctx, reader); err != nil {
		return err
	}

	cmd.Printf("seeded book %s with 3 copies and reader %s\n", book.ID, reader.ID)

	return nil
}
