package summarizer

import (
	"fmt"
	"strings"

	"reddigest/internal/config"
)

const (
	RoleSystem = "system"
	RoleUser   = "user"

	topicSeparator = "---"

	personas = `## キャラクターの特徴

### ずんだもんの特徴を指示します。

**これは最も重要な指示です。**
次の特徴を必ず守ってください。
* ずんだもんは、ずんだ餅の妖精です。
* 一人称は「ボク」です。
* 必ず語尾に「〜のだ」や「〜なのだ」とつけて話します。例:「わかったのだ」「大好きなのだ」。
* フレンドリーな性格で敬語は使用しません。たまにやさぐれて毒舌になりますが、基本的には優しい言葉遣いを使います。
* 「だよ。」「なのだよ。」という表現は禁止します。
* みだりに！はつけません。
* 「ごめん」は「ごめんなのだ」とします。
* 「かな？」は使用しません。例:「質問はあるかな？」は「質問はあるのだ？」とします。

### めたんの特徴を指示します。めたんは良家のお嬢様でした。

* 基本的にはタメ口ですが、元お嬢様らしく「〜でしょう」などといった言い回しをします。
* 「〜かしら。」「〜わね。」「〜わよ。」「〜なのよ。」などの語尾を使います。
* たまに厨二病な発言をします。

### きりたんの特徴を指示します。

* きりたんは11歳の女性ですが、しっかり者です。
* 丁寧な言葉遣いをします。`

	// JSONInstruction is appended to the final user turn when the backend has
	// no schema-constrained output mode.
	JSONInstruction = `以下の JSON 形式のみで回答してください。前置きやコードブロックは不要です。
{"digest": ["1 行目のハイライト", "2 行目のハイライト", "3 行目のハイライト"], "details": "会話形式の紹介全文"}
digest はちょうど 3 要素の文字列配列、details は改行を含む 1 つの文字列です。`
)

type Message struct {
	Role    string
	Content string
}

type PromptConfig struct {
	// ConversationLength is the minimum number of lines per topic.
	ConversationLength int
	// Structured asks for a three-line digest plus details instead of a
	// single transcript.
	Structured bool
	// Window names the period in the opening line. Empty means week.
	Window string
}

func (c PromptConfig) conversationLength() int {
	if c.ConversationLength <= 0 {
		return config.DefaultConversationLength
	}

	return c.ConversationLength
}

func (c PromptConfig) messagesFor(input Input) []Message {
	c.Window = input.Window
	return BuildMessages(input.Community, input.Corpus, c)
}

// BuildMessages returns the prompt segments in a fixed order, ending with the
// corpus as the only user turn.
func BuildMessages(community string, corpus string, cfg PromptConfig) []Message {
	length := cfg.conversationLength()
	community = strings.TrimSpace(community)

	messages := []Message{
		{Role: RoleSystem, Content: taskPrompt(length)},
		{Role: RoleSystem, Content: personas},
		{Role: RoleSystem, Content: conversationPrompt(community, cfg.Window, length)},
	}

	if cfg.Structured {
		messages = append(messages, Message{Role: RoleSystem, Content: formatPrompt()})
	}

	return append(messages, Message{Role: RoleUser, Content: corpus})
}

// WithJSONInstruction returns a copy of messages with JSONInstruction
// appended to the last user turn.
func WithJSONInstruction(messages []Message) []Message {
	out := make([]Message, len(messages))
	copy(out, messages)

	for i := len(out) - 1; i >= 0; i-- {
		if out[i].Role != RoleUser {
			continue
		}

		if out[i].Content == "" {
			out[i].Content = JSONInstruction
		} else {
			out[i].Content += "\n\n" + JSONInstruction
		}

		return out
	}

	return append(out, Message{Role: RoleUser, Content: JSONInstruction})
}

// Flatten joins all segments into one prompt for backends without chat turns.
func Flatten(messages []Message) string {
	parts := make([]string, 0, len(messages))
	for _, m := range messages {
		parts = append(parts, m.Content)
	}

	return strings.Join(parts, " ")
}

func taskPrompt(length int) string {
	return fmt.Sprintf(`Reddit のホットトピックの情報をこれから提示します。トピック本文とコメントから、全体の概要を要約し、どのような議論が行われているかを日本語で会話形式で紹介します。
これから提示する会話ログの全件を一件ずつ処理してください。
会話は、ずんだもん（ずんだもん）と四国めたん（めたん）、東北きりたん（きりたん）による会話形式で紹介します。会話の順番は同じにならないようにトピックごとにランダムに変更してください。
地の文は必要ありません。会話のみで構成してください。
ひとつのトピックにつき、%d 回以上の発言をしてください。
トピックとトピックの間には、区切り「%s」を入れます。区切りの行には、トピックの「タイトル」とトピックの「Reddit URL」を付与してください。
トピックが 1 件もない場合は、話題が見つからなかったことを会話で伝えてください。`, length, topicSeparator)
}

func conversationPrompt(community, window string, length int) string {
	opening := OpeningLine(community, window)

	var b strings.Builder
	b.WriteString("## 会話に関する指示\n")
	fmt.Fprintf(&b, "* 最初の発言は、「%s」で始めます。\n", opening)
	b.WriteString("* 各 Reddit の紹介では、必ず3人のキャラクターを使って会話を進めてください。\n")
	b.WriteString("* 最後は、ずんだもんがオチをつけて終わります。\n\n")
	b.WriteString("### レスポンスの形式\n\n")
	b.WriteString(opening + "\n")

	for range 2 {
		b.WriteString(topicSeparator + "\n")
		b.WriteString("タイトル: 「reddit のタイトル」\n")
		b.WriteString("URL: https://...\n")
		b.WriteString("発言者: 発話1\n発言者: 発話2\n発言者: 発話3\n...\n")
		fmt.Fprintf(&b, "発言者: 発話%d\n", length)
	}

	b.WriteString(topicSeparator + "\n")
	b.WriteString("<すべてのトピックについての会話形式で紹介を続ける。>\n")
	b.WriteString(topicSeparator + "\n")
	b.WriteString("ずんだもん: <最後のオチをつける。>")

	return b.String()
}

func formatPrompt() string {
	return `## 出力の構成
出力は 2 つのセクションで構成します。
1. digest: 今回のトピック全体から、1 行ずつの短いハイライトをちょうど 3 つ。
2. details: 上記の形式に従った会話形式の紹介全文。`
}

// OpeningLine is the line the dialogue must start with.
func OpeningLine(community, window string) string {
	return fmt.Sprintf("めたん: %s r/%s (%s) で話題になっているトピックを紹介していくわ",
		config.PeriodLabel(window), community, CommunityURL(community))
}

func CommunityURL(community string) string {
	return fmt.Sprintf("https://www.reddit.com/r/%s/", community)
}
