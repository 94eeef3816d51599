package workspace

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reverseDesignAi/internal/design"
	"reverseDesignAi/internal/events"
	"reverseDesignAi/internal/uploads"
)

type stubDesigner struct {
	mu          sync.Mutex
	analyzeErr  error
	generateErr error
	segments    []design.Segment
	gotSegments []design.Segment
	gate        chan struct{}
	// onSplit runs inside Split before it returns.
	onSplit func()
	// generateStarted and generateGate hold Generate in flight.
	generateStarted chan struct{}
	generateGate    chan struct{}
}

func (d *stubDesigner) Analyze(_ context.Context, _ string, images []uploads.Image) (design.StyleAnalysis, error) {
	if d.gate != nil {
		<-d.gate
	}
	if d.analyzeErr != nil {
		return design.StyleAnalysis{}, d.analyzeErr
	}
	return design.StyleAnalysis{Prompt: "flat pastel", ImageCount: len(images), Model: "m"}, nil
}

func (d *stubDesigner) Split(_ context.Context, _ string, text string) (design.ThemeSegments, error) {
	if d.onSplit != nil {
		d.onSplit()
	}
	return design.ThemeSegments{Segments: d.segments, Model: "m"}, nil
}

func (d *stubDesigner) Generate(_ context.Context, _ string, style design.StyleAnalysis, segments []design.Segment) ([]design.GeneratedImage, error) {
	d.mu.Lock()
	d.gotSegments = segments
	d.mu.Unlock()
	if d.generateStarted != nil {
		close(d.generateStarted)
	}
	if d.generateGate != nil {
		<-d.generateGate
	}
	if d.generateErr != nil {
		return nil, d.generateErr
	}
	if len(segments) == 0 {
		return []design.GeneratedImage{{SVG: "<svg>" + style.Prompt + "</svg>"}}, nil
	}
	out := make([]design.GeneratedImage, len(segments))
	for i, seg := range segments {
		out[i] = design.GeneratedImage{Theme: seg.Theme, SVG: "<svg></svg>"}
	}
	return out, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	states []string
}

func (p *recordingPublisher) Publish(evt events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.states = append(p.states, evt.State)
}

func img(n int) uploads.Image {
	return uploads.New(fmt.Sprintf("img-%d.png", n), "image/png", []byte{0x89, 'P', 'N', 'G', byte(n)})
}

func newService(d Designer) (*Service, *recordingPublisher) {
	pub := &recordingPublisher{}
	return NewService(NewStore(10), d, pub, nil), pub
}

func TestServiceHappyPath(t *testing.T) {
	designer := &stubDesigner{segments: []design.Segment{{Theme: "A"}, {Theme: "B"}}}
	svc, pub := newService(designer)
	ctx := context.Background()

	sess := svc.Create()
	sess, report, err := svc.AddImages(sess.ID, []uploads.Image{img(1), img(2), img(1)})
	require.NoError(t, err)
	assert.Equal(t, StateUploading, sess.State)
	assert.Equal(t, uploads.MergeReport{Added: 2, Duplicates: 1}, report)

	sess, err = svc.Analyze(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, StateAnalyzed, sess.State)
	require.NotNil(t, sess.Analysis)
	assert.Equal(t, 2, sess.Analysis.ImageCount)

	_, err = svc.SetContentText(sess.ID, "two topics")
	require.NoError(t, err)
	sess, err = svc.Split(ctx, sess.ID)
	require.NoError(t, err)
	require.NotNil(t, sess.Segments)
	assert.Equal(t, StateAnalyzed, sess.State, "split does not move the state")

	sess, err = svc.Generate(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, StateGenerated, sess.State)
	require.Len(t, sess.Results, 2)
	assert.Equal(t, "B", sess.Results[1].Theme)
	assert.Len(t, designer.gotSegments, 2)

	assert.Equal(t, []string{"idle", "uploading", "analyzing", "analyzed", "generating", "generated"}, pub.states)
}

func TestServiceGenerateWithoutSegmentsUsesStyleOnly(t *testing.T) {
	designer := &stubDesigner{}
	svc, _ := newService(designer)
	ctx := context.Background()

	sess := svc.Create()
	_, _, err := svc.AddImages(sess.ID, []uploads.Image{img(1)})
	require.NoError(t, err)
	_, err = svc.Analyze(ctx, sess.ID)
	require.NoError(t, err)

	sess, err = svc.Generate(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, sess.Results, 1)
	assert.Equal(t, "<svg>flat pastel</svg>", sess.Results[0].SVG)
	assert.Nil(t, designer.gotSegments)
}

func TestServicePreconditions(t *testing.T) {
	svc, _ := newService(&stubDesigner{})
	ctx := context.Background()
	sess := svc.Create()

	_, err := svc.Analyze(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrNoImages)

	_, err = svc.Generate(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrNoAnalysis)

	_, err = svc.Split(ctx, sess.ID)
	assert.ErrorIs(t, err, design.ErrEmptyPrompt)

	_, err = svc.Analyze(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, _, err = svc.AddImages(sess.ID, nil)
	assert.ErrorIs(t, err, uploads.ErrNoFiles)

	_, err = svc.RemoveImage(sess.ID, 0)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestServiceFailureMovesToFailedAndAllowsRetry(t *testing.T) {
	boom := errors.New("provider down")
	designer := &stubDesigner{analyzeErr: boom}
	svc, _ := newService(designer)
	ctx := context.Background()

	sess := svc.Create()
	_, _, err := svc.AddImages(sess.ID, []uploads.Image{img(1)})
	require.NoError(t, err)

	sess, err = svc.Analyze(ctx, sess.ID)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, StateFailed, sess.State)
	assert.Equal(t, "provider down", sess.Err)

	_, err = svc.Generate(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrNoAnalysis)

	designer.analyzeErr = nil
	sess, err = svc.Analyze(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, StateAnalyzed, sess.State)
	assert.Empty(t, sess.Err)
}

func TestServiceRejectsEditsWhileBusy(t *testing.T) {
	designer := &stubDesigner{gate: make(chan struct{})}
	svc, _ := newService(designer)
	ctx := context.Background()

	sess := svc.Create()
	_, _, err := svc.AddImages(sess.ID, []uploads.Image{img(1), img(2)})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Analyze(ctx, sess.ID)
		done <- err
	}()
	require.Eventually(t, func() bool {
		s, _ := svc.Get(sess.ID)
		return s.State == StateAnalyzing
	}, time.Second, time.Millisecond)

	_, _, err = svc.AddImages(sess.ID, []uploads.Image{img(3)})
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = svc.MoveImage(sess.ID, 0, Right)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = svc.RemoveImage(sess.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = svc.SetContentText(sess.ID, "x")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = svc.ClearImages(sess.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = svc.Analyze(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	close(designer.gate)
	require.NoError(t, <-done)
}

func TestServiceImageEditing(t *testing.T) {
	svc, _ := newService(&stubDesigner{})
	sess := svc.Create()
	sess, _, err := svc.AddImages(sess.ID, []uploads.Image{img(1), img(2), img(3)})
	require.NoError(t, err)

	sess, err = svc.MoveImage(sess.ID, 0, Right)
	require.NoError(t, err)
	assert.Equal(t, []string{"img-2.png", "img-1.png", "img-3.png"}, names(sess.Images))

	sess, err = svc.MoveImage(sess.ID, 0, Left)
	require.NoError(t, err)
	assert.Equal(t, []string{"img-2.png", "img-1.png", "img-3.png"}, names(sess.Images), "moving past the edge is a no-op")

	sess, err = svc.RemoveImage(sess.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"img-2.png", "img-3.png"}, names(sess.Images))

	sess, _, err = svc.AddImages(sess.ID, []uploads.Image{img(4), img(5), img(6), img(7), img(8)})
	require.NoError(t, err)
	assert.Len(t, sess.Images, uploads.MaxFiles)

	_, _, err = svc.AddImages(sess.ID, []uploads.Image{img(9)})
	assert.ErrorIs(t, err, uploads.ErrTooManyFiles)

	sess, err = svc.ClearImages(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, sess.State)
	assert.Empty(t, sess.Images)
}

func TestServiceRemovingLastImageResets(t *testing.T) {
	svc, _ := newService(&stubDesigner{})
	sess := svc.Create()
	_, _, err := svc.AddImages(sess.ID, []uploads.Image{img(1)})
	require.NoError(t, err)
	_, err = svc.Analyze(context.Background(), sess.ID)
	require.NoError(t, err)

	sess, err = svc.RemoveImage(sess.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, sess.State)
	assert.Nil(t, sess.Analysis)
}

func TestServiceSetContentTextTruncates(t *testing.T) {
	svc, _ := newService(&stubDesigner{})
	sess := svc.Create()

	sess, err := svc.SetContentText(sess.ID, strings.Repeat("字", MaxContentRunes+10))
	require.NoError(t, err)
	assert.Equal(t, MaxContentRunes, len([]rune(sess.ContentText)))
}

func names(images []uploads.Image) []string {
	out := make([]string, len(images))
	for i, im := range images {
		out[i] = im.Name
	}
	return out
}

func TestServiceSplitDoesNotOverwriteRunningGeneration(t *testing.T) {
	designer := &stubDesigner{
		segments:        []design.Segment{{Theme: "late"}},
		generateStarted: make(chan struct{}),
		generateGate:    make(chan struct{}),
	}
	svc, _ := newService(designer)
	ctx := context.Background()

	sess := svc.Create()
	_, _, err := svc.AddImages(sess.ID, []uploads.Image{img(1)})
	require.NoError(t, err)
	_, err = svc.Analyze(ctx, sess.ID)
	require.NoError(t, err)
	_, err = svc.SetContentText(sess.ID, "two topics")
	require.NoError(t, err)

	generated := make(chan error, 1)
	designer.onSplit = func() {
		go func() {
			_, err := svc.Generate(ctx, sess.ID)
			generated <- err
		}()
		<-designer.generateStarted
	}

	got, err := svc.Split(ctx, sess.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StateGenerating, got.State)
	assert.Nil(t, got.Segments)

	close(designer.generateGate)
	require.NoError(t, <-generated)

	final, err := svc.Get(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, StateGenerated, final.State)
	assert.Nil(t, final.Segments)
}
