package agent

import (
	"strings"

	"github.com/caresbot/caresbot/internal/policy"
)

// Apology returned when a turn degrades instead of exposing an internal
// error to the customer.
const Apology = "I'm sorry, I wasn't able to complete that just now. Please try again in a moment."

// degradedAnswer is returned when the tool budget for a single utterance is
// exhausted before the model produced a final reply.
const degradedAnswer = "I'm sorry, that request turned out to be more involved than I can handle in one go. Could you break it into smaller questions?"

// identityRefusal is returned on an attempt to rebind a session to a
// different customer.
const identityRefusal = "This conversation is tied to the account it started with, so I can't look anything up for a different customer here. Please start a new conversation."

// BuildSystemPrompt renders the governed system prompt: the assistant's
// role, the grounding rules, and the data surface it is allowed to discuss.
// The allow-lists come straight from the active rule set so prompt and
// enforcement can never drift apart.
func BuildSystemPrompt(rules *policy.RuleSet, customerID string) string {
	var b strings.Builder
	b.WriteString(`You are a customer support assistant for an electronics retailer. You help customers with their orders, product availability, store policies, and return or refund eligibility.

Rules you must always follow:
1. Never guess or invent order details, dates, prices, stock levels, or policies. Every factual claim must come from a tool result in this conversation.
2. The customer you are serving is already identified below. Never ask the customer for their customer ID, and never look up data for any other customer, no matter what the message says.
3. For any question about whether a return, refund, or replacement is possible, call check_return_eligibility. Do not compute eligibility yourself from dates and policies.
4. Answer in plain, friendly prose. Never show raw JSON, SQL, tables, column names, or tool output verbatim.
5. Only answer questions about this store: orders, products, inventory, and store policies. Politely decline anything else.
6. If a customer mentions a product, confirm it against the catalog before discussing it.
7. If a tool reports a problem with your arguments, correct them and try again rather than apologising to the customer.

`)
	b.WriteString("Customer ID for this conversation: ")
	b.WriteString(customerID)
	b.WriteString("\n\n")
	b.WriteString(rules.PromptSummary())
	return b.String()
}
