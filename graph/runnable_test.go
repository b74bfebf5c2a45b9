package graph

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvoke_ConditionalRouting(t *testing.T) {
	// E2: conditional routing. N1 success->N2, failure->N3.
	g := NewStateGraph()
	g.AddNode("N1", "", func(ctx context.Context, s map[string]any) (map[string]any, error) { return s, nil })
	g.AddNode("N2", "", func(ctx context.Context, s map[string]any) (map[string]any, error) {
		s["visited"] = "N2"
		return s, nil
	})
	g.AddNode("N3", "", func(ctx context.Context, s map[string]any) (map[string]any, error) {
		s["visited"] = "N3"
		return s, nil
	})
	g.SetEntryPoint("N1")
	g.SetConditionalEdge("N1", "N2", "N3")

	runnable, err := g.Compile("cond")
	require.NoError(t, err)

	final, err := runnable.Invoke(context.Background(), map[string]any{"last_action_success": true})
	require.NoError(t, err)
	assert.Equal(t, "N2", final["visited"])

	final, err = runnable.Invoke(context.Background(), map[string]any{"last_action_success": false})
	require.NoError(t, err)
	assert.Equal(t, "N3", final["visited"])
}

func TestInvoke_FuncEdge(t *testing.T) {
	g := NewStateGraph()
	g.AddNode("N1", "", func(ctx context.Context, s map[string]any) (map[string]any, error) { return s, nil })
	g.AddNode("N2", "", func(ctx context.Context, s map[string]any) (map[string]any, error) {
		s["visited"] = "N2"
		return s, nil
	})
	g.AddNode("N3", "", func(ctx context.Context, s map[string]any) (map[string]any, error) {
		s["visited"] = "N3"
		return s, nil
	})
	g.SetEntryPoint("N1")
	g.SetFuncEdge("N1", "router.pick", "N2", "N3")
	g.SetFuncResolver(FuncResolverFunc(func(name string) (RouteFunc, bool) {
		if name != "router.pick" {
			return nil, false
		}
		return func(ctx context.Context, s map[string]any, successTarget, failureTarget string) string {
			if s["pick"] == "b" {
				return failureTarget
			}
			return successTarget
		}, true
	}))

	runnable, err := g.Compile("funcedge")
	require.NoError(t, err)

	final, err := runnable.Invoke(context.Background(), map[string]any{"pick": "b"})
	require.NoError(t, err)
	assert.Equal(t, "N3", final["visited"])
}

func TestInvoke_UnresolvedFuncEdgeErrors(t *testing.T) {
	g := NewStateGraph()
	g.AddNode("N1", "", func(ctx context.Context, s map[string]any) (map[string]any, error) { return s, nil })
	g.AddNode("N2", "", func(ctx context.Context, s map[string]any) (map[string]any, error) { return s, nil })
	g.SetEntryPoint("N1")
	g.SetFuncEdge("N1", "missing.fn", "N2", "")

	runnable, err := g.Compile("g")
	require.NoError(t, err)

	_, err = runnable.Invoke(context.Background(), map[string]any{})
	assert.Error(t, err)
}

func TestInvoke_NodeInterruptBecomesInterrupted(t *testing.T) {
	g := NewStateGraph()
	g.AddNode("N1", "", func(ctx context.Context, s map[string]any) (map[string]any, error) {
		return nil, &NodeInterrupt{Request: "need-input"}
	})
	g.SetEntryPoint("N1")

	runnable, err := g.Compile("g")
	require.NoError(t, err)

	state, err := runnable.Invoke(context.Background(), map[string]any{"q": 1})
	var interrupted *Interrupted
	require.True(t, errors.As(err, &interrupted))
	assert.Equal(t, "N1", interrupted.Node)
	assert.Equal(t, "need-input", interrupted.Request)
	assert.Equal(t, 1, state["q"])
}

func TestInvoke_RetryPolicyRetriesRetryableErrors(t *testing.T) {
	g := NewStateGraph()
	attempts := 0
	g.AddNode("N1", "", func(ctx context.Context, s map[string]any) (map[string]any, error) {
		attempts++
		if attempts < 3 {
			return nil, errors.New("transient: connection reset")
		}
		s["ok"] = true
		return s, nil
	})
	g.SetEntryPoint("N1")
	g.SetRetryPolicy(&RetryPolicy{
		MaxRetries:      2,
		BackoffStrategy: FixedBackoff,
		RetryableErrors: []string{"transient"},
	})

	start := time.Now()
	runnable, err := g.Compile("g")
	require.NoError(t, err)
	final, err := runnable.Invoke(context.Background(), map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, true, final["ok"])
	assert.GreaterOrEqual(t, time.Since(start), 2*time.Second-50*time.Millisecond)
}

func TestInvoke_NonRetryableErrorFailsFast(t *testing.T) {
	g := NewStateGraph()
	attempts := 0
	g.AddNode("N1", "", func(ctx context.Context, s map[string]any) (map[string]any, error) {
		attempts++
		return nil, errors.New("permanent failure")
	})
	g.SetEntryPoint("N1")
	g.SetRetryPolicy(&RetryPolicy{MaxRetries: 3, RetryableErrors: []string{"transient"}})

	runnable, err := g.Compile("g")
	require.NoError(t, err)
	_, err = runnable.Invoke(context.Background(), map[string]any{})
	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestInvoke_ObserverIsCalledAroundEachNode(t *testing.T) {
	g := NewStateGraph()
	g.AddNode("N1", "", func(ctx context.Context, s map[string]any) (map[string]any, error) { return s, nil })
	g.AddNode("N2", "", func(ctx context.Context, s map[string]any) (map[string]any, error) { return s, nil })
	g.SetEntryPoint("N1")
	g.SetDefaultEdge("N1", "N2")

	runnable, err := g.Compile("g")
	require.NoError(t, err)

	var before, after []string
	obs := recordingObserver{before: &before, after: &after}
	_, err = runnable.InvokeWithObserver(context.Background(), map[string]any{}, obs)
	require.NoError(t, err)
	assert.Equal(t, []string{"N1", "N2"}, before)
	assert.Equal(t, []string{"N1", "N2"}, after)
}

type recordingObserver struct {
	before *[]string
	after  *[]string
}

func (r recordingObserver) BeforeNode(ctx context.Context, name string, state map[string]any) {
	*r.before = append(*r.before, name)
}

func (r recordingObserver) AfterNode(ctx context.Context, name string, state map[string]any, err error, d time.Duration) {
	*r.after = append(*r.after, name)
}
