package widget

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runoshun/label-crew/internal/domain"
)

const testConfig = `<View>
  <Text name="text" value="$text"/>
  <Choices name="sentiment" toName="text">
    <Choice value="Positive"/>
    <Choice value="Negative"/>
  </Choices>
  <Choices name="topics" toName="text" choice="multiple">
    <Choice value="Sports"/>
    <Choice value="Politics"/>
  </Choices>
</View>`

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type recordingTarget struct{ attached domain.Widget }

func (t *recordingTarget) Attach(w domain.Widget) { t.attached = w }

// recordingCallbacks records widget callbacks.
type recordingCallbacks struct {
	created   []domain.Region
	deleted   []domain.Region
	calls     []string
	loaded    int
	selected  domain.Annotation
	previous  domain.Annotation
	lastValue bool
}

func (r *recordingCallbacks) OnLoaded(context.Context, domain.Widget) error {
	r.loaded++
	return nil
}

func (r *recordingCallbacks) OnSubmitAnnotation(context.Context, domain.Widget, domain.Annotation) error {
	r.calls = append(r.calls, "submit")
	return nil
}

func (r *recordingCallbacks) OnUpdateAnnotation(context.Context, domain.Widget, domain.Annotation) error {
	r.calls = append(r.calls, "update")
	return nil
}

func (r *recordingCallbacks) OnDeleteAnnotation(context.Context, domain.Widget, domain.Annotation) error {
	r.calls = append(r.calls, "delete")
	return nil
}

func (r *recordingCallbacks) OnSkipTask(context.Context, domain.Widget) error {
	r.calls = append(r.calls, "skip")
	return nil
}

func (r *recordingCallbacks) OnGroundTruth(_ context.Context, _ domain.Widget, _ domain.Annotation, value bool) error {
	r.calls = append(r.calls, "groundTruth")
	r.lastValue = value
	return nil
}

func (r *recordingCallbacks) OnEntityCreate(_ domain.Widget, region domain.Region) {
	r.created = append(r.created, region)
}

func (r *recordingCallbacks) OnEntityDelete(_ domain.Widget, region domain.Region) {
	r.deleted = append(r.deleted, region)
}

func (r *recordingCallbacks) OnSelectAnnotation(_ domain.Widget, selected, previous domain.Annotation) {
	r.selected, r.previous = selected, previous
}

func mountTerminal(t *testing.T, interfaces []string) (*Terminal, *recordingCallbacks) {
	t.Helper()
	cb := &recordingCallbacks{}
	target := &recordingTarget{}
	w, err := NewTerminal(fixedClock{t: time.Unix(100, 0)})(context.Background(), target, domain.WidgetSettings{
		Callbacks:  cb,
		Config:     testConfig,
		Interfaces: interfaces,
	})
	require.NoError(t, err)
	require.Same(t, w, target.attached)
	assert.Equal(t, 1, cb.loaded)
	return w.(*Terminal), cb
}

func TestParseLabelConfig(t *testing.T) {
	cfg, err := ParseLabelConfig(testConfig)
	require.NoError(t, err)

	assert.Equal(t, []Field{{Name: "text", Key: "text"}}, cfg.Fields)
	require.Len(t, cfg.Choices, 2)
	assert.Equal(t, ChoiceGroup{Name: "sentiment", ToName: "text", Values: []string{"Positive", "Negative"}}, cfg.Choices[0])
	assert.True(t, cfg.Choices[1].Multiple)

	_, ok := cfg.Group("missing")
	assert.False(t, ok)
}

func TestParseLabelConfig_Errors(t *testing.T) {
	_, err := ParseLabelConfig("  ")
	assert.Error(t, err)

	_, err = ParseLabelConfig("<View><Choices>")
	assert.Error(t, err)

	_, err = ParseLabelConfig(`<View><Choice value="x"/></View>`)
	assert.Error(t, err)
}

func TestRegistry_Resolve(t *testing.T) {
	r := NewRegistry()
	Register(r, nil)

	construct, err := r.Resolve(TerminalName)
	require.NoError(t, err)
	assert.NotNil(t, construct)
	assert.Equal(t, []string{TerminalName}, r.Names())

	_, err = r.Resolve("web")
	assert.ErrorIs(t, err, domain.ErrWidgetUnavailable)
}

func TestNewTerminal_InvalidConfig(t *testing.T) {
	_, err := NewTerminal(nil)(context.Background(), &recordingTarget{}, domain.WidgetSettings{Config: "<View"})
	assert.Error(t, err)
}

func TestStore_Lifecycle(t *testing.T) {
	s := NewStore(fixedClock{t: time.Unix(100, 0)})
	s.Load(domain.TaskPayload{
		ID:          1,
		Annotations: []domain.Annotation{{PK: "10"}},
		Predictions: []domain.Prediction{{ID: "p1", Result: domain.Result{{"x": 1}}}},
	})

	anns := s.Annotations()
	require.Len(t, anns, 1)
	assert.NotEmpty(t, anns[0].ID, "local id assigned on load")
	assert.Equal(t, time.Unix(100, 0), anns[0].LoadedAt)

	fromPred := s.AddAnnotationFromPrediction(s.Predictions()[0])
	assert.True(t, fromPred.UserGenerated)
	assert.Equal(t, domain.Result{{"x": 1}}, fromPred.Result)

	require.NoError(t, s.SelectAnnotation("10"))
	sel, ok := s.Selected()
	require.True(t, ok)
	assert.Equal(t, "10", sel.PK)

	updated, err := s.UpdatePersonalKey(fromPred.ID, "11")
	require.NoError(t, err)
	assert.True(t, updated.SentUserGenerated)
	assert.True(t, updated.Persisted())

	s.DeleteAnnotation("10")
	_, ok = s.Selected()
	assert.False(t, ok, "deleting the selection clears it")
	assert.Len(t, s.Annotations(), 1)

	assert.ErrorIs(t, s.SelectAnnotation("missing"), domain.ErrAnnotationNotFound)

	s.Reset()
	assert.Empty(t, s.Annotations())
	assert.Empty(t, s.Predictions())
}

func TestTerminal_ToggleChoice(t *testing.T) {
	w, cb := mountTerminal(t, domain.DefaultInterfaces)
	a := w.Store().AddAnnotation(domain.AnnotationOptions{UserGenerated: true})
	require.NoError(t, w.Store().SelectAnnotation(a.ID))

	require.NoError(t, w.ToggleChoice("sentiment", "Positive"))
	assert.Equal(t, []string{"Positive"}, w.Choices("sentiment"))

	require.NoError(t, w.ToggleChoice("sentiment", "Negative"))
	assert.Equal(t, []string{"Negative"}, w.Choices("sentiment"), "single choice replaces")

	require.NoError(t, w.ToggleChoice("topics", "Sports"))
	require.NoError(t, w.ToggleChoice("topics", "Politics"))
	assert.Equal(t, []string{"Sports", "Politics"}, w.Choices("topics"))

	require.NoError(t, w.ToggleChoice("topics", "Sports"))
	assert.Equal(t, []string{"Politics"}, w.Choices("topics"))

	assert.Len(t, cb.created, 5)
	assert.Len(t, cb.deleted, 3)

	assert.ErrorIs(t, w.ToggleChoice("sentiment", "Maybe"), domain.ErrUnknownChoice)
}

func TestTerminal_Actions(t *testing.T) {
	w, cb := mountTerminal(t, domain.DefaultInterfaces)
	ctx := context.Background()

	assert.ErrorIs(t, w.Submit(ctx), domain.ErrNoAnnotationSelected)

	a, err := w.NewAnnotation()
	require.NoError(t, err)
	assert.Equal(t, a.ID, cb.selected.ID)

	require.NoError(t, w.Submit(ctx))
	_, err = w.Store().UpdatePersonalKey(a.ID, "5")
	require.NoError(t, err)
	require.NoError(t, w.Submit(ctx))
	require.NoError(t, w.Skip(ctx))
	require.NoError(t, w.SetGroundTruth(ctx, true))
	require.NoError(t, w.Delete(ctx))

	assert.Equal(t, []string{"submit", "update", "skip", "groundTruth", "delete"}, cb.calls)
	assert.True(t, cb.lastValue)
}

func TestTerminal_DisabledInterfaces(t *testing.T) {
	w, cb := mountTerminal(t, []string{domain.InterfaceBasic})
	ctx := context.Background()

	_, err := w.NewAnnotation()
	assert.ErrorIs(t, err, domain.ErrInterfaceDisabled)
	assert.ErrorIs(t, w.Skip(ctx), domain.ErrInterfaceDisabled)
	assert.ErrorIs(t, w.Delete(ctx), domain.ErrInterfaceDisabled)
	assert.Empty(t, cb.calls)
}

func TestTerminal_FlagsAndSnapshot(t *testing.T) {
	w, _ := mountTerminal(t, domain.DefaultInterfaces)

	w.SetFlags(domain.LoadingFlag(true))
	w.SetFlags(domain.NoTaskFlag(true))
	w.AssignTask(domain.Task{ID: 3})

	v := w.Snapshot()
	assert.True(t, v.Loading)
	assert.True(t, v.NoTask)
	require.NotNil(t, v.Task)
	assert.Equal(t, 3, v.Task.ID)

	w.SetFlags(domain.LoadingFlag(false))
	v = w.Snapshot()
	assert.False(t, v.Loading)
	assert.True(t, v.NoTask, "nil flag is left unchanged")

	w.ResetState()
	assert.Nil(t, w.Snapshot().Task)
}
