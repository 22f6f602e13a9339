package merge

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/pdfmerge/internal/filelist"
	"example.com/pdfmerge/internal/source"
)

// fakeDoc is a document of labelled pages.
type fakeDoc struct {
	pages []string
}

func (d *fakeDoc) PageCount() int { return len(d.pages) }

// fakeEngine understands documents of the form "PDF:<label>:<pages>" and
// records the calls made to it.
type fakeEngine struct {
	mu        sync.Mutex
	calls     []string
	createErr error
	saveErr   error
}

func (e *fakeEngine) record(c string) {
	e.mu.Lock()
	e.calls = append(e.calls, c)
	e.mu.Unlock()
}

func (e *fakeEngine) CreateDocument() (Document, error) {
	e.record("create")
	if e.createErr != nil {
		return nil, e.createErr
	}
	return &fakeDoc{}, nil
}

func (e *fakeEngine) LoadDocument(_ context.Context, data []byte) (Document, error) {
	parts := strings.Split(string(data), ":")
	if len(parts) != 3 || parts[0] != "PDF" {
		e.record("load-fail")
		return nil, errors.New("not a pdf")
	}
	n, err := strconv.Atoi(parts[2])
	if err != nil {
		return nil, err
	}
	e.record("load " + parts[1])
	d := &fakeDoc{}
	for i := 0; i < n; i++ {
		d.pages = append(d.pages, parts[1]+strconv.Itoa(i+1))
	}
	return d, nil
}

func (e *fakeEngine) PageIndices(doc Document) []int {
	idx := make([]int, doc.PageCount())
	for i := range idx {
		idx[i] = i
	}
	return idx
}

func (e *fakeEngine) CopyPages(_, src Document, indices []int) ([]Page, error) {
	s := src.(*fakeDoc)
	out := make([]Page, len(indices))
	for i, ix := range indices {
		out[i] = s.pages[ix]
	}
	return out, nil
}

func (e *fakeEngine) AppendPages(dst Document, pages []Page) error {
	d := dst.(*fakeDoc)
	for _, p := range pages {
		d.pages = append(d.pages, p.(string))
	}
	return nil
}

func (e *fakeEngine) SaveDocument(_ context.Context, dst Document) ([]byte, error) {
	e.record("save")
	if e.saveErr != nil {
		return nil, e.saveErr
	}
	return []byte(strings.Join(dst.(*fakeDoc).pages, ",")), nil
}

func doc(label string, pages int) filelist.Entry {
	data := "PDF:" + label + ":" + strconv.Itoa(pages)
	return filelist.Entry{ID: label, Descriptor: source.FromBytes(label+".pdf", source.MediaTypePDF, []byte(data))}
}

func corrupt(name string) filelist.Entry {
	return filelist.Entry{ID: name, Descriptor: source.FromBytes(name, source.MediaTypePDF, []byte("garbage"))}
}

// countingSource counts opens.
type countingSource struct {
	data  []byte
	opens int
	err   error
}

func (c *countingSource) Open(context.Context) (io.ReadCloser, error) {
	c.opens++
	if c.err != nil {
		return nil, c.err
	}
	return io.NopCloser(bytes.NewReader(c.data)), nil
}

type progressLog struct {
	got []Progress
}

func (p *progressLog) Report(pr Progress) { p.got = append(p.got, pr) }

type recorderStub struct {
	status Status
	files  int
	pages  int
	calls  int
}

func (r *recorderStub) ObserveMerge(s Status, files, pages int, _ time.Duration) {
	r.status, r.files, r.pages = s, files, pages
	r.calls++
}

func TestMerge_EmptyInput(t *testing.T) {
	eng := &fakeEngine{}
	rec := &recorderStub{}
	prog := &progressLog{}

	art, err := New(eng, WithRecorder(rec)).Merge(context.Background(), nil, prog)

	require.Error(t, err)
	assert.ErrorAs(t, err, &EmptyInputError{})
	assert.Equal(t, StageInput, StageOf(err))
	assert.Nil(t, art)
	assert.Empty(t, eng.calls, "engine must not be touched")
	assert.Empty(t, prog.got, "no progress for empty input")
	assert.Zero(t, rec.calls)
}

func TestMerge_PageOrderWithEmptyDocument(t *testing.T) {
	eng := &fakeEngine{}
	prog := &progressLog{}
	rec := &recorderStub{}

	art, err := New(eng, WithRecorder(rec)).Merge(context.Background(),
		[]filelist.Entry{doc("A", 2), doc("B", 0), doc("C", 3)}, prog)

	require.NoError(t, err)
	require.NotNil(t, art)
	assert.Equal(t, 5, art.Pages)
	assert.Equal(t, "A1,A2,C1,C2,C3", string(art.Data))
	assert.Equal(t, DefaultFilename, art.Filename)
	assert.Equal(t, source.MediaTypePDF, art.MediaType)

	assert.Equal(t, []string{"create", "load A", "load B", "load C", "save"}, eng.calls)

	require.Len(t, prog.got, 4)
	for i, name := range []string{"A.pdf", "B.pdf", "C.pdf"} {
		assert.Equal(t, StatusRunning, prog.got[i].Status)
		assert.Equal(t, i+1, prog.got[i].Current)
		assert.Equal(t, 3, prog.got[i].Total)
		assert.Equal(t, name, prog.got[i].Name)
	}
	assert.Equal(t, StatusSucceeded, prog.got[3].Status)
	assert.Equal(t, 3, prog.got[3].Current)

	assert.Equal(t, StatusSucceeded, rec.status)
	assert.Equal(t, 5, rec.pages)
}

func TestMerge_CorruptFileFailsFastThenRecovers(t *testing.T) {
	eng := &fakeEngine{}
	o := New(eng)
	a, c := doc("A", 2), doc("C", 3)

	prog := &progressLog{}
	art, err := o.Merge(context.Background(), []filelist.Entry{a, corrupt("broken.pdf"), c}, prog)

	require.Error(t, err)
	assert.Nil(t, art)
	var pe SourceParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 1, pe.Index)
	assert.Equal(t, "broken.pdf", pe.Name)
	assert.Equal(t, StageParse, StageOf(err))
	ff, ok := FailedFile(err)
	require.True(t, ok)
	assert.Equal(t, FileFailure{Index: 1, Name: "broken.pdf"}, ff)

	assert.NotContains(t, eng.calls, "load C", "remaining files must not be processed")
	assert.NotContains(t, eng.calls, "save")
	last := prog.got[len(prog.got)-1]
	assert.Equal(t, StatusFailed, last.Status)
	assert.Equal(t, 1, last.Current)

	art, err = o.Merge(context.Background(), []filelist.Entry{a, c}, nil)
	require.NoError(t, err)
	assert.Equal(t, "A1,A2,C1,C2,C3", string(art.Data))
}

func TestMerge_ReadsEachSourceOnce(t *testing.T) {
	srcA := &countingSource{data: []byte("PDF:A:1")}
	srcB := &countingSource{data: []byte("PDF:B:2")}
	files := []filelist.Entry{
		{ID: "a", Descriptor: source.Descriptor{Name: "a.pdf", Content: srcA}},
		{ID: "b", Descriptor: source.Descriptor{Name: "b.pdf", Content: srcB}},
	}

	art, err := New(&fakeEngine{}).Merge(context.Background(), files, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, art.Pages)
	assert.Equal(t, 1, srcA.opens)
	assert.Equal(t, 1, srcB.opens)
}

func TestMerge_ReadError(t *testing.T) {
	boom := errors.New("disk gone")
	files := []filelist.Entry{
		doc("A", 1),
		{ID: "x", Descriptor: source.Descriptor{Name: "x.pdf", Content: &countingSource{err: boom}}},
	}

	_, err := New(&fakeEngine{}).Merge(context.Background(), files, nil)

	var re SourceReadError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, 1, re.Index)
	assert.Equal(t, "x.pdf", re.Name)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, StageRead, StageOf(err))
}

func TestMerge_EngineUnavailable(t *testing.T) {
	_, err := New(nil).Merge(context.Background(), []filelist.Entry{doc("A", 1)}, nil)
	assert.ErrorAs(t, err, &EngineUnavailableError{})
	assert.Equal(t, StageCreate, StageOf(err))

	boom := errors.New("no engine")
	_, err = New(&fakeEngine{createErr: boom}).Merge(context.Background(), []filelist.Entry{doc("A", 1)}, nil)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, StageCreate, StageOf(err))
}

func TestMerge_SaveError(t *testing.T) {
	rec := &recorderStub{}
	boom := errors.New("write failed")
	art, err := New(&fakeEngine{saveErr: boom}, WithRecorder(rec)).
		Merge(context.Background(), []filelist.Entry{doc("A", 1)}, nil)

	assert.Nil(t, art)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, StageSave, StageOf(err))
	assert.Equal(t, StatusFailed, rec.status)
}

func TestMerge_CanceledContextSurfacesAsReadError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(&fakeEngine{}).Merge(ctx, []filelist.Entry{doc("A", 1)}, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StageRead, StageOf(err))
}

func TestStageOfForeignError(t *testing.T) {
	assert.Equal(t, Stage(""), StageOf(errors.New("x")))
	_, ok := FailedFile(SaveError{Cause: errors.New("x")})
	assert.False(t, ok)
}
