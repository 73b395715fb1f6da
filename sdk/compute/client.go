package compute

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/rnative/rnative-client/sdk/httputils"
	"github.com/rnative/rnative-client/sdk/models"
)

// DefaultConcurrency is the number of per-model results fetched in parallel
// when no limit is configured.
const DefaultConcurrency = 4

// Client is the job client of the compute service. It holds no task state;
// every call reads fresh data from the service.
type Client struct {
	transport        *httputils.Transport
	concurrency      int
	booleanMolFilter bool
}

// ClientOption customizes a Client
type ClientOption func(*Client)

// WithConcurrency bounds the number of per-model result fetches in flight.
func WithConcurrency(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithBooleanMolProbityFilter sends the MolProbity filter as a boolean, for
// service versions that model it as on/off.
func WithBooleanMolProbityFilter(enabled bool) ClientOption {
	return func(c *Client) {
		c.booleanMolFilter = enabled
	}
}

// NewClient returns a Client sending its requests through transport.
func NewClient(transport *httputils.Transport, opts ...ClientOption) *Client {
	c := &Client{
		transport:   transport,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// computeRequest is the JSON body of a submission
type computeRequest struct {
	Files             []models.FileData        `json:"files"`
	Analyzer          models.Analyzer          `json:"analyzer"`
	VisualizationTool models.VisualizationTool `json:"visualizationTool"`
	ConsensusMode     models.ConsensusMode     `json:"consensusMode"`
	ConfidenceLevel   *float64                 `json:"confidenceLevel"`
	MolProbityFilter  interface{}              `json:"molProbityFilter"`
	DotBracket        string                   `json:"dotBracket,omitempty"`
}

func (c *Client) encodeRequest(req *models.SubmissionRequest) computeRequest {
	body := computeRequest{
		Files:             req.Files,
		Analyzer:          req.Analyzer,
		VisualizationTool: req.VisualizationTool,
		ConsensusMode:     req.ConsensusMode,
		ConfidenceLevel:   req.ConfidenceLevel,
		MolProbityFilter:  req.MolProbityFilter,
		DotBracket:        req.DotBracket,
	}
	if c.booleanMolFilter {
		body.MolProbityFilter = req.MolProbityFilter.Enabled()
	}
	return body
}

// Submit validates the request, posts it once and returns the task id.
// Submissions are never retried so that a task is not created twice.
func (c *Client) Submit(ctx context.Context, req *models.SubmissionRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", fmt.Errorf("invalid request: %w", err)
	}

	logrus.Infof("Submitting %d file(s) with analyzer %s, consensus %s.", len(req.Files), req.Analyzer, req.ConsensusMode)

	content, err := c.transport.PostJSON(ctx, "", c.encodeRequest(req))
	if err != nil {
		return "", err
	}

	var resp models.SubmitResponse
	if err := httputils.DecodeJSON("submit", content, &resp); err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.TaskID) == "" {
		return "", &httputils.ProtocolError{Operation: "submit", Reason: "response has no taskId"}
	}

	return resp.TaskID, nil
}

// PollStatus reads the current status of a task. It is a pure read and safe
// to call any number of times.
func (c *Client) PollStatus(ctx context.Context, taskID string) (*models.TaskStatus, error) {
	var status models.TaskStatus
	if err := c.transport.GetJSON(ctx, "status", httputils.Path(taskID, "status"), &status); err != nil {
		return nil, err
	}
	if status.Status == "" {
		return nil, &httputils.ProtocolError{Operation: "status", Reason: "response has no status"}
	}

	return &status, nil
}

// FileError is the failure of one per-model result fetch
type FileError struct {
	FileName string
	Err      error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %s", e.FileName, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// ResultError collects the per-model fetches that failed during FetchResult.
type ResultError struct {
	TaskID string
	Files  []*FileError
}

func (e *ResultError) Error() string {
	msgs := make([]string, len(e.Files))
	for i, f := range e.Files {
		msgs[i] = f.Error()
	}
	return fmt.Sprintf("unable to fetch %d model result(s) of task %s: %s", len(e.Files), e.TaskID, strings.Join(msgs, "; "))
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e *ResultError) Unwrap() []error {
	errs := make([]error, len(e.Files))
	for i, f := range e.Files {
		errs[i] = f
	}
	return errs
}

// FetchResult reads the aggregate result of a completed task and then the
// per-model result of every surviving file. Per-model reads run in parallel,
// bounded by the configured concurrency. If any of them fails, the returned
// error is a *ResultError naming each failed file; the returned ResultSet
// still carries the aggregate and every model that was fetched.
func (c *Client) FetchResult(ctx context.Context, taskID string) (*models.ResultSet, error) {
	var result models.ResultSet
	if err := c.transport.GetJSON(ctx, "result", httputils.Path(taskID, "result"), &result); err != nil {
		return nil, err
	}

	if result.Ranking.Len() != len(result.FileNames) {
		return nil, &httputils.ProtocolError{
			Operation: "result",
			Reason:    fmt.Sprintf("ranking has %d rows but %d file names were returned", result.Ranking.Len(), len(result.FileNames)),
		}
	}

	result.Models = make(map[string]*models.ModelResult, len(result.FileNames))

	var (
		mu       sync.Mutex
		failures []*FileError
	)

	group := new(errgroup.Group)
	group.SetLimit(c.concurrency)
	for _, name := range result.FileNames {
		name := name
		group.Go(func() error {
			model, err := c.FetchModelResult(ctx, taskID, name)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, &FileError{FileName: name, Err: err})
				return nil
			}
			result.Models[name] = model
			return nil
		})
	}
	_ = group.Wait()

	if len(failures) > 0 {
		sort.Slice(failures, func(i, j int) bool { return failures[i].FileName < failures[j].FileName })
		return &result, &ResultError{TaskID: taskID, Files: failures}
	}

	return &result, nil
}

// FetchModelResult reads the result of one model file of a completed task.
func (c *Client) FetchModelResult(ctx context.Context, taskID string, fileName string) (*models.ModelResult, error) {
	var model models.ModelResult
	if err := c.transport.GetJSON(ctx, "model result", httputils.Path(taskID, "result", fileName), &model); err != nil {
		return nil, err
	}

	return &model, nil
}

// FetchVisualization reads the rendered secondary-structure diagram. The
// payload is returned unmodified.
func (c *Client) FetchVisualization(ctx context.Context, taskID string) ([]byte, error) {
	return c.transport.Get(ctx, httputils.Path(taskID, "svg"))
}

// FetchRequest reads the request as stored by the service for a task.
func (c *Client) FetchRequest(ctx context.Context, taskID string) ([]byte, error) {
	return c.transport.Get(ctx, httputils.Path(taskID, "request"))
}

// FetchMolProbity reads the raw MolProbity responses of a task, keyed by
// model name.
func (c *Client) FetchMolProbity(ctx context.Context, taskID string) (map[string]string, error) {
	responses := make(map[string]string)
	if err := c.transport.GetJSON(ctx, "molprobity", httputils.Path(taskID, "molprobity"), &responses); err != nil {
		return nil, err
	}

	return responses, nil
}

// ErrEmptySplit is returned when the split endpoint produced no model.
var ErrEmptySplit = errors.New("service returned no model files")

// SplitFile uploads a multi-model structure file or archive and returns the
// individual model files the service extracted from it.
func (c *Client) SplitFile(ctx context.Context, fileName string, content io.Reader) ([]models.SplitFile, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return nil, fmt.Errorf("unable to create multipart body: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", fileName, err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("unable to create multipart body: %w", err)
	}

	request, err := c.transport.CreateRequest(ctx, http.MethodPost, "split", &body, writer.FormDataContentType())
	if err != nil {
		return nil, err
	}

	respContent, err := c.transport.SendRequest(request)
	if err != nil {
		return nil, err
	}

	var resp models.SplitResponse
	if err := httputils.DecodeJSON("split", respContent, &resp); err != nil {
		return nil, err
	}
	if len(resp.Files) == 0 {
		return nil, &httputils.ProtocolError{Operation: "split", Reason: "response has no files", Err: ErrEmptySplit}
	}

	return resp.Files, nil
}
