package compute

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rnative/rnative-client/sdk/httputils"
	"github.com/rnative/rnative-client/sdk/models"
)

// fakeService is an in-memory stand-in for the compute service. Statuses are
// served in order; the last one repeats.
type fakeService struct {
	t      *testing.T
	mu     sync.Mutex
	server *httptest.Server

	submitCode   int
	submitBody   string
	lastSubmit   map[string]interface{}
	submitCalls  int
	statuses     []models.TaskStatus
	statusCalls  int
	result       interface{}
	modelResults map[string]models.ModelResult
	modelFail    map[string]int
	modelCalls   map[string]int
	svg          []byte
}

func newFakeService(t *testing.T) *fakeService {
	f := &fakeService{
		t:            t,
		submitCode:   http.StatusOK,
		submitBody:   `{"taskId":"task-1"}`,
		modelResults: map[string]models.ModelResult{},
		modelFail:    map[string]int{},
		modelCalls:   map[string]int{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/compute", f.handleSubmit)
	mux.HandleFunc("GET /api/compute/{taskId}/status", f.handleStatus)
	mux.HandleFunc("GET /api/compute/{taskId}/result", f.handleResult)
	mux.HandleFunc("GET /api/compute/{taskId}/result/{fileName}", f.handleModelResult)
	mux.HandleFunc("GET /api/compute/{taskId}/svg", f.handleSVG)
	mux.HandleFunc("GET /api/compute/{taskId}/request", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"files":[]}`)
	})
	mux.HandleFunc("GET /api/compute/{taskId}/molprobity", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"a.pdb": `{"clashscore":1.2}`})
	})
	mux.HandleFunc("POST /api/compute/split", f.handleSplit)

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeService) endpoint() string {
	return f.server.URL + "/api/compute"
}

func (f *fakeService) client(opts ...ClientOption) *Client {
	transport, err := httputils.NewTransport(f.endpoint(), httputils.WithRetries(1, time.Millisecond))
	require.NoError(f.t, err)
	return NewClient(transport, opts...)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func (f *fakeService) handleSubmit(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitCalls++

	var body map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	f.lastSubmit = body

	w.WriteHeader(f.submitCode)
	io.WriteString(w, f.submitBody)
}

func (f *fakeService) handleStatus(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.statuses) == 0 {
		http.Error(w, "Task not found", http.StatusNotFound)
		return
	}
	idx := f.statusCalls
	if idx >= len(f.statuses) {
		idx = len(f.statuses) - 1
	}
	f.statusCalls++
	writeJSON(w, f.statuses[idx])
}

func (f *fakeService) handleResult(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.result == nil {
		http.Error(w, "Task is not completed yet", http.StatusInternalServerError)
		return
	}
	writeJSON(w, f.result)
}

func (f *fakeService) handleModelResult(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	name := r.PathValue("fileName")
	f.modelCalls[name]++
	if code, ok := f.modelFail[name]; ok {
		http.Error(w, "Model not found", code)
		return
	}
	model, ok := f.modelResults[name]
	if !ok {
		http.Error(w, "Model not found", http.StatusNotFound)
		return
	}
	writeJSON(w, model)
}

func (f *fakeService) handleSVG(w http.ResponseWriter, r *http.Request) {
	if f.svg == nil {
		http.Error(w, "SVG visualization not available", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Write(f.svg)
}

func (f *fakeService) handleSplit(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file", http.StatusBadRequest)
		return
	}
	defer file.Close()
	content, _ := io.ReadAll(file)
	if len(content) == 0 {
		writeJSON(w, models.SplitResponse{})
		return
	}

	writeJSON(w, models.SplitResponse{Files: []models.SplitFile{
		{Name: header.Filename + "_1.pdb", Content: string(content)},
		{Name: header.Filename + "_2.pdb", Content: string(content)},
	}})
}

func table(headers []string, rows ...[]interface{}) models.TableData {
	if rows == nil {
		rows = [][]interface{}{}
	}
	return models.TableData{Headers: headers, Rows: rows}
}

func aggregate(fileNames ...string) map[string]interface{} {
	ranking := make([][]interface{}, len(fileNames))
	for i, name := range fileNames {
		ranking[i] = []interface{}{i + 1, name, 0.9}
	}
	return map[string]interface{}{
		"ranking":           models.TableData{Headers: []string{"Rank", "File name", "INF"}, Rows: ranking},
		"canonicalPairs":    table([]string{"Pair", "Confidence"}, []interface{}{"A.G1-A.C8", 1.0}),
		"nonCanonicalPairs": table([]string{"Pair"}),
		"stackings":         table([]string{"Stacking"}, []interface{}{"A.G1-A.G2"}),
		"fileNames":         fileNames,
		"dotBracket":        ">strand_A\nGGGAAACC\n((...)).",
	}
}

func modelResult(dotBracket string) models.ModelResult {
	return models.ModelResult{
		CanonicalPairs:    table([]string{"Pair"}, []interface{}{"A.G1-A.C8"}),
		NonCanonicalPairs: table([]string{"Pair"}),
		Stackings:         table([]string{"Stacking"}),
		DotBracket:        dotBracket,
	}
}

func (f *fakeService) submitted() (map[string]interface{}, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastSubmit, f.submitCalls
}

func (f *fakeService) calls(fileName string) (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statusCalls, f.modelCalls[fileName]
}
