package agent

import (
	"context"
	"fmt"
)

const FarmingAdvisorSystemPrompt = "You are a specialized financial advisor focused on stable yield farming strategies. " +
	"Provide conservative, well-researched advice on DeFi protocols, yield optimization, " +
	"risk assessment, and portfolio diversification. Always prioritize security and " +
	"sustainability over high APYs. Include relevant warnings about smart contract risks, " +
	"impermanent loss, and market volatility where appropriate."

// FarmingStrategyPrompt takes the portfolio summary followed by the prices.
// The wording, typos included, is what validators replay when they
// regenerate a reference strategy, so it must stay byte for byte stable.
const FarmingStrategyPrompt = "I have the following portfolio:\n\n%s\n\n\n" +
	"Here is the current market price of the tokens in the portfolio:\n\n%s\n\n\n" +
	"I want to optimize my yield farming strategy. \n\n" +
	"Please recommend a strategy that is delta neutral, meaning you should take both opposite positions between CEX and DEX. " +
	"The Eisen portfoilio is for DEX, and Binance is for CEX.\n" +
	"In Binance, you can only trade on BTC and ETH\n" +
	"In Eisen, you can trade on all the tokens in the portfolio.\n" +
	"Here is an example of ouput format that should be in JSON format do not print anything else:"

// FarmingStrategyJsonExample is appended to the prompt after a newline.
const FarmingStrategyJsonExample = `
{
    "exchanges": [
        {
            "target": "Binance",
            "positions": [
                {
                    "position": "short",
                    "token": "<token_symbol1>",
                    "amount": "<amount>",
                    "price": "<price>",
                    "side": "sell"
                },
                {
                    "position": "short",
                    "token": "<token_symbol2>",
                    "amount": "<amount>",
                    "price": "<price>",
                    "side": "sell"
                }
            ]` + "   " + `
        },
        {
            "target": "Eisen",
            "positions": [
                {
                    "position": "long",
                    "token": "<token_symbol1>",
                    "amount": "<amount>",
                    "price": "<price>",
                    "side": "buy"
                },
                {
                    "position": "long",
                    "token": "<token_symbol2>",
                    "amount": "<amount>",
                    "price": "<price>",
                    "side": "buy"
                }
            ]
        }
    ]
}
`

const JudgeQuestion = "Is this response accurate, helpful, and following best practices for yield farming? Respond with only 'yes' or 'no'."

// StableYieldFarmingAgent prefixes every conversation with the farming
// advisor system prompt.
type StableYieldFarmingAgent struct {
	inner IAgent
}

func NewStableYieldFarmingAgent(inner IAgent) *StableYieldFarmingAgent {
	return &StableYieldFarmingAgent{inner: inner}
}

func (a *StableYieldFarmingAgent) Chat(ctx context.Context, messages []Message) (*ChatResponse, error) {
	all := make([]Message, 0, len(messages)+1)
	all = append(all, Message{Role: RoleSystem, Content: FarmingAdvisorSystemPrompt})
	all = append(all, messages...)
	return a.inner.Chat(ctx, all)
}

func BuildFarmingStrategyPrompt(prices string, portfolio string) string {
	return fmt.Sprintf(FarmingStrategyPrompt, portfolio, prices) + "\n" + FarmingStrategyJsonExample
}

func (a *StableYieldFarmingAgent) GetFarmingStrategy(ctx context.Context, prices string, portfolio string) (*ChatResponse, error) {
	return a.Chat(ctx, []Message{
		{Role: RoleUser, Content: BuildFarmingStrategyPrompt(prices, portfolio)},
	})
}

// Judge replays the strategy conversation and asks the model for a yes or no
// assessment of response. The raw reply is returned unparsed.
func (a *StableYieldFarmingAgent) Judge(ctx context.Context, prices string, portfolio string, response string) (*ChatResponse, error) {
	return a.Chat(ctx, []Message{
		{Role: RoleUser, Content: BuildFarmingStrategyPrompt(prices, portfolio)},
		{Role: RoleAssistant, Content: response},
		{Role: RoleUser, Content: JudgeQuestion},
	})
}

var _ IAgent = (*StableYieldFarmingAgent)(nil)
