package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/clouddesk/tenantctl/internal/model"
)

func TestAggregateCountsAndPreservesOrder(t *testing.T) {
	t.Parallel()

	outcomes := []model.Outcome{
		{Key: "Sales", Status: model.StatusCreated},
		{Key: "Sales", Status: model.StatusAlreadyExists},
		{Key: "Legacy", Status: model.StatusRemoved},
		{Key: "ghost@contoso.com", Status: model.StatusFailed},
	}

	result := Aggregate(outcomes)
	require.Len(t, result.Outcomes, 4)
	require.Equal(t, "Sales", result.Outcomes[0].Key)
	require.Equal(t, 1, result.Counts[model.StatusCreated])
	require.Equal(t, 1, result.Counts[model.StatusAlreadyExists])
	require.Equal(t, 1, result.Counts[model.StatusRemoved])
	require.Equal(t, 1, result.Counts[model.StatusFailed])
	require.Equal(t, 1, result.FailedCount())
}

func TestAggregateEmpty(t *testing.T) {
	t.Parallel()

	result := Aggregate(nil)
	require.Empty(t, result.Outcomes)
	require.Equal(t, 0, result.FailedCount())
}

func TestSummaryStableOrder(t *testing.T) {
	t.Parallel()

	result := Aggregate([]model.Outcome{
		{Status: model.StatusFailed},
		{Status: model.StatusCreated},
		{Status: model.StatusCreated},
	})
	result.Duration = 1500 * time.Millisecond

	summary := Summary(result)
	require.Contains(t, summary, "3 resources")
	require.Contains(t, summary, "2 created")
	require.Contains(t, summary, "1 failed")
	require.Less(t, strings.Index(summary, "created"), strings.Index(summary, "failed"))
	require.Contains(t, summary, "1.5s")
}

func TestRenderPlainTable(t *testing.T) {
	t.Parallel()

	result := Aggregate([]model.Outcome{
		{Type: "group365", Key: "Sales", Status: model.StatusCreated, Detail: "resource created"},
		{Type: "user", Key: "jdoe@contoso.com", Status: model.StatusFailed, Detail: "create failed: 403"},
	})

	buf := &bytes.Buffer{}
	Render(buf, result, RenderOptions{Styled: false})

	out := buf.String()
	require.Contains(t, out, "Sales")
	require.Contains(t, out, "jdoe@contoso.com")
	require.Contains(t, out, "created")
	require.Contains(t, out, "create failed: 403")
	require.NotContains(t, out, "\x1b[")
}

func TestRenderNilResultIsNoop(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	Render(buf, nil, RenderOptions{})
	require.Empty(t, buf.String())
}
