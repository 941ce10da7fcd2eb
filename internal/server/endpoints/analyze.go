package endpoints

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/protocollens/internal/api"
	"github.com/jackzampolin/protocollens/internal/document"
	"github.com/jackzampolin/protocollens/internal/svcctx"
)

// multipartMemory is how much of an upload is held in memory before
// spilling to a temp file.
const multipartMemory = 8 << 20

// AnalyzeRequest is the JSON body for POST /api/analyze.
type AnalyzeRequest struct {
	Text   string `json:"text"`
	Source string `json:"source,omitempty"`
}

// AnalyzeEndpoint handles POST /api/analyze.
type AnalyzeEndpoint struct{}

var _ api.Endpoint = (*AnalyzeEndpoint)(nil)

func (e *AnalyzeEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/analyze", e.handler
}

func (e *AnalyzeEndpoint) RequiresInit() bool { return true }

// handler segments an uploaded document (multipart "file": .pdf, .txt, .md)
// or a JSON {"text": ...} body and responds with an api.AnalysisReport.
func (e *AnalyzeEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	rt := svcctx.RuntimeFrom(r.Context())
	if rt == nil {
		writeError(w, http.StatusServiceUnavailable, "pipeline not initialized")
		return
	}
	if rt.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, rt.MaxUploadBytes)
	}

	doc, status, err := readDocument(r)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}

	text := doc.Prepare(rt.Document)
	result, summary, err := rt.Pipeline.Analyze(r.Context(), text)
	if err != nil {
		writeClassifiedError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, api.AnalysisReport{AnalysisResult: result, SectionSummary: summary, Document: &doc.Metadata})
}

// readDocument decodes the request body into a Document, returning the
// HTTP status to use on failure.
func readDocument(r *http.Request) (*document.Document, int, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			return nil, bodyErrorStatus(err), fmt.Errorf("failed to parse form: %w", err)
		}
		defer r.MultipartForm.RemoveAll()

		f, fh, err := r.FormFile("file")
		if err != nil {
			return nil, http.StatusBadRequest, errors.New("no file uploaded")
		}
		defer f.Close()

		doc, err := document.Parse(fh.Filename, f)
		if err != nil {
			return nil, http.StatusBadRequest, err
		}
		return doc, 0, nil
	}

	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, bodyErrorStatus(err), fmt.Errorf("invalid request body: %w", err)
	}
	source := req.Source
	if source == "" {
		source = "request"
	}
	return document.FromText(source, req.Text), 0, nil
}

func bodyErrorStatus(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

func (e *AnalyzeEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <file|->",
		Short: "Analyze a protocol document on the server",
		Long: `Upload a protocol document (.pdf, .txt, .md) to the server and print the
sections found and the inclusion criteria extracted. Use - to send text
from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client := api.NewClient(getServerURL())

			var resp api.AnalysisReport
			if args[0] == "-" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read stdin: %w", err)
				}
				if err := client.Post(ctx, "/api/analyze", AnalyzeRequest{Text: string(data), Source: "stdin"}, &resp); err != nil {
					return err
				}
			} else {
				if _, err := os.Stat(args[0]); err != nil {
					return err
				}
				if err := client.PostFile(ctx, "/api/analyze", "file", args[0], &resp); err != nil {
					return err
				}
			}
			return api.Output(resp)
		},
	}
}

