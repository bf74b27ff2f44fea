package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mail2shivb/fileupload/internal/core/domain"
	"github.com/mail2shivb/fileupload/internal/logger"
)

var (
	askJSON bool
	askTopN int
)

var askCmd = &cobra.Command{
	Use:   "ask [file] [question]",
	Short: "Upload a document and ask a question about it",
	Long: `Uploads the file to the configured drive folder, retrieves the passages
most relevant to the question from that file only, and prints the answer.

The question may span several arguments:
  fileupload ask report.pdf What was the Q3 revenue?`,
	Args: cobra.MinimumNArgs(2),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	askCmd.Flags().IntVarP(&askTopN, "top-n", "n", 0, "passages to retrieve (default retrieval.top_n)")
	rootCmd.AddCommand(askCmd)
}

// askOutput is the --json output of the ask command.
type askOutput struct {
	Text    string               `json:"text"`
	RunID   string               `json:"run_id"`
	ItemID  string               `json:"item_id"`
	Sources []domain.ChunkSource `json:"sources"`
}

func runAsk(cmd *cobra.Command, args []string) error {
	path := args[0]
	question := strings.Join(args[1:], " ")

	if askTopN < 0 {
		return fmt.Errorf("%w: --top-n must not be negative", domain.ErrInvalidInput)
	}

	ask, closer, settings, err := newAsk(askTopN)
	if err != nil {
		return err
	}
	defer closer.Close()

	data, err := readDocument(path, settings.Server.MaxUploadBytes)
	if err != nil {
		return err
	}

	answer, err := ask.IngestAndAsk(cmd.Context(), filepath.Base(path), data, question)
	if err != nil {
		logger.Debug("ask failed: %v", err)
		info := domain.DescribeError(err)
		return fmt.Errorf("%s: %s", info.Category, info.Message)
	}

	if askJSON {
		return outputAnswerJSON(cmd, answer)
	}
	outputAnswer(cmd, answer)
	return nil
}

// readDocument reads at most limit bytes from path. A non-positive limit
// disables the check.
func readDocument(path string, limit int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: file not found: %s", domain.ErrInvalidInput, path)
		}
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if limit > 0 {
		r = io.LimitReader(f, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", domain.ErrInvalidInput, limit)
	}
	return data, nil
}

func outputAnswerJSON(cmd *cobra.Command, answer *domain.Answer) error {
	out := askOutput{
		Text:    answer.Text,
		RunID:   answer.RunID,
		ItemID:  answer.ItemID,
		Sources: answer.Sources,
	}
	if out.Sources == nil {
		out.Sources = []domain.ChunkSource{}
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal answer: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputAnswer(cmd *cobra.Command, answer *domain.Answer) {
	cmd.Println(styles.Title.Render("Answer"))
	cmd.Println(styles.Answer.Render(answer.Text))

	if len(answer.Sources) == 0 {
		cmd.Println(styles.Source.Render("No passages were found in the document."))
		return
	}

	cmd.Println()
	cmd.Println(styles.Title.Render("Sources"))
	seen := make(map[string]bool)
	n := 0
	for _, src := range answer.Sources {
		label := src.URL
		if label == "" {
			label = src.DriveItemID
		}
		if seen[label] {
			continue
		}
		seen[label] = true
		n++
		cmd.Println(styles.Source.Render(fmt.Sprintf("  [%d] %s", n, label)))
	}
}
