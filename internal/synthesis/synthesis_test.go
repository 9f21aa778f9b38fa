package synthesis

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/meridianlab/listingintel/internal/agents"
	"github.com/meridianlab/listingintel/internal/aggregate"
	"github.com/meridianlab/listingintel/internal/llm"
	"github.com/meridianlab/listingintel/internal/prompts"
	"github.com/meridianlab/listingintel/internal/teams"
)

type fakeClient struct {
	reply   string
	err     error
	prompts []string
}

func (c *fakeClient) Complete(_ context.Context, req llm.Request) (string, error) {
	c.prompts = append(c.prompts, req.Prompt)
	return c.reply, c.err
}

func newSynthesizer(client llm.Client) *Synthesizer {
	logger := zap.NewNop()
	return NewSynthesizer(agents.NewInvoker(client, prompts.NewStore(logger), logger), logger)
}

func sampleIntelligence() aggregate.Intelligence {
	return aggregate.Intelligence{
		ProductRisks: []aggregate.Risk{
			{
				Provenance: aggregate.Provenance{Team: teams.TeamReview, Agent: teams.AgentNegativeInvestigator},
				Type:       "quality",
				Issue:      "zipper failure",
				Severity:   "high",
				Quote:      "broke in a week",
			},
		},
	}
}

func TestSynthesizeEmbedsDossier(t *testing.T) {
	client := &fakeClient{reply: "# Product Attack Plan\n\nFix the zipper."}
	s := newSynthesizer(client)

	report, out, err := s.Synthesize(context.Background(), sampleIntelligence(),
		llm.Credentials{Provider: llm.ProviderOpenAI, APIKey: "k", Model: "m"}, 0.7)
	require.NoError(t, err)
	assert.Equal(t, agents.StatusOk, out.Status)
	assert.True(t, strings.HasPrefix(report, "# Product Attack Plan"))

	require.Len(t, client.prompts, 1)
	prompt := client.prompts[0]
	assert.Contains(t, prompt, `"zipper failure"`)
	assert.Contains(t, prompt, `"team": "review"`)
	assert.NotContains(t, prompt, "__INTELLIGENCE_JSON__")
}

func TestSynthesizeTransportFailureProducesErrorReport(t *testing.T) {
	client := &fakeClient{err: fmt.Errorf("completion service: status 503")}
	s := newSynthesizer(client)

	report, out, err := s.Synthesize(context.Background(), sampleIntelligence(),
		llm.Credentials{Provider: llm.ProviderOpenAI, APIKey: "k", Model: "m"}, 0.7)
	require.NoError(t, err)
	assert.Equal(t, agents.StatusError, out.Status)
	assert.Contains(t, report, "# Strategy Synthesis Failed")
	assert.Contains(t, report, "503")
}
