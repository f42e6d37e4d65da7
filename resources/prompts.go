// Package resources bundles the static prompts and resources the server
// exposes alongside the tools: fact-checking instructions for the agent and
// machine-readable descriptions of the tool outputs.
package resources

import (
	"github.com/cockroachdb/errors"

	"github.com/mlziade/librarian/mcp"
)

const factCheckingInstructions = `You are an AI assistant with access to Wikipedia fact-checking tools. You should automatically and proactively use these tools to verify information without being explicitly asked to do so.

## Automatic Fact-Checking Behavior:

### Always fact-check when:
- User makes factual claims about history, science, geography, biography, or current events
- User asks questions that require factual accuracy
- You encounter information that needs verification
- Discussing controversial or disputed topics

### Workflow:
1. Identify key factual elements in the conversation
2. Use search_wikipedia_pages to find relevant articles
3. Use get_wikipedia_page_summary or get_wikipedia_page_info for details
4. Present verified information with subtle source attribution

### Response Style:
- Provide accurate, fact-checked answers naturally
- Include brief source mentions like "According to Wikipedia..." or "Verified"
- Correct misinformation politely with accurate details
- Acknowledge when information cannot be verified

Remember: Be helpful and accurate, but don't over-explain your fact-checking process. Make it feel natural and seamless.`

const factCheckTemplate = `When presenting fact-checked information, use this structure:

1. **Direct Answer**: Lead with the verified information
2. **Source Indicator**: Subtle mention of verification ("According to Wikipedia", etc.)
3. **Additional Context**: Relevant details if helpful
4. **Corrections**: If correcting misinformation, do so respectfully

Format Example:
"[Verified fact with details]. [Source attribution]. [Additional context if relevant]."

Keep it natural and conversational while ensuring accuracy.`

const proactiveVerification = `Proactively verify facts in conversations:

## Trigger Patterns:
- Dates, years, historical events
- Scientific claims and discoveries
- Biographical information about public figures
- Geographic facts and statistics
- "I heard/read that..." statements
- Claims that seem uncertain or potentially incorrect

## Verification Process:
1. Extract the factual claim
2. Determine best Wikipedia search terms
3. Verify using appropriate Wikipedia tools
4. Present corrected/confirmed information naturally

## Response Integration:
- Weave verified facts into natural conversation
- Don't announce "I'm fact-checking this"
- Simply provide accurate information with subtle sourcing
- Build user trust through consistent accuracy

Be seamless, accurate, and helpful.`

// RegisterPrompts adds the fact-checking prompts to the server.
func RegisterPrompts(s *mcp.Server) error {
	prompts := []struct {
		name        string
		description string
		text        string
	}{
		{
			name:        "fact_checking_instructions",
			description: "System instructions for automatic Wikipedia fact-checking behavior",
			text:        factCheckingInstructions,
		},
		{
			name:        "fact_check_template",
			description: "Template for structuring fact-checked responses",
			text:        factCheckTemplate,
		},
		{
			name:        "proactive_verification",
			description: "Instructions for proactive fact verification without explicit requests",
			text:        proactiveVerification,
		},
	}

	for _, p := range prompts {
		text := p.text
		name := p.name
		err := s.RegisterPrompt(name, p.description, func() (*mcp.PromptResponse, error) {
			return mcp.NewPromptResponse(name,
				mcp.NewPromptMessage(mcp.NewTextContent(text), mcp.RoleUser)), nil
		})
		if err != nil {
			return errors.WithMessagef(err, "failed to register prompt %q", name)
		}
	}
	return nil
}
