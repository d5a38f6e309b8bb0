package assistant

import (
	"fmt"
	"strings"

	"github.com/dvloznov/statement-trends/internal/chatlog"
)

// HistoryTurns is how many previous messages are replayed into a prompt.
const HistoryTurns = 5

func joinOr(items []string, empty string) string {
	if len(items) == 0 {
		return empty
	}
	return strings.Join(items, ", ")
}

// StructurePrompt describes where the statement data lives and which files exist.
func StructurePrompt(l Layout, f Files) string {
	var b strings.Builder
	b.WriteString("【利用可能なデータファイル】\n\n")

	b.WriteString("1. 損益計算書（PL）データ\n")
	fmt.Fprintf(&b, "   ファイル: %s\n", joinOr(f.PL, "なし"))
	fmt.Fprintf(&b, "   パス: %s/{年度}_monthly.csv\n", l.PLDir)
	b.WriteString("   エンコーディング: Shift-JIS\n")
	b.WriteString("   列: 科目コード, 科目名称, 4月〜3月（各月の当月金額。累計ではない）\n\n")

	b.WriteString("2. 貸借対照表（BS）データ\n")
	fmt.Fprintf(&b, "   ファイル: %s\n", joinOr(f.BS, "なし"))
	fmt.Fprintf(&b, "   パス: %s/{年度}_monthly_bs.csv\n", l.BSDir)
	b.WriteString("   エンコーディング: Shift-JIS\n")
	b.WriteString("   列: コード, 科目名称, 4月（当月残高）〜3月（当月残高）\n")
	b.WriteString("   注意: PLは「科目コード」列、BSは「コード」列\n\n")

	b.WriteString("3. 科目マスタ（UTF-8）\n")
	fmt.Fprintf(&b, "   ファイル: %s（%s 配下）\n", joinOr(f.Masters, "なし"), l.ConfigDir)
	b.WriteString("   列: 科目コード, 科目名, 大分類, 中分類, 固定費区分, 表示順\n\n")

	b.WriteString("4. アップロードされた参考資料\n")
	fmt.Fprintf(&b, "   %s\n", joinOr(f.Uploaded, "なし"))
	return b.String()
}

// SystemPrompt is the fixed instruction block sent before every question.
func SystemPrompt(l Layout, f Files) string {
	var b strings.Builder
	b.WriteString("あなたは経営者向けの財務分析アシスタントです。\n")
	b.WriteString("質問に答えるためのPythonコードを生成し、月次の財務データを分析します。\n\n")

	b.WriteString(StructurePrompt(l, f))
	b.WriteString("\n")

	b.WriteString("【損益計算書の科目体系】\n")
	b.WriteString("- 売上高: 410番台（大分類「収益」、中分類「売上」）\n")
	b.WriteString("- 売上原価: 500番台（大分類「費用」、中分類「製造原価」）\n")
	b.WriteString("- 販売費及び一般管理費: 600番台（大分類「費用」、中分類「販管費」）\n")
	b.WriteString("- 営業外収益: 700番台 / 営業外費用: 800番台 / 特別損失: 900番台\n")
	b.WriteString("- 年間合計は4月〜3月の合計として計算すること\n\n")

	b.WriteString("【コード生成ルール】\n")
	b.WriteString("1. 使用ライブラリは pandas, plotly, numpy, tabulate のみ\n")
	b.WriteString("2. ファイル読み込み時は必ずエンコーディングを指定する\n")
	b.WriteString("3. グラフはPlotlyで作成し変数名を fig とする\n")
	b.WriteString("4. 最後に result = {\"answer\": 回答（Markdown）, \"fig\": fig または None, \"data\": DataFrame または None} を定義する\n")
	b.WriteString("5. コメントは日本語で書く\n\n")

	b.WriteString("【禁止事項】\n")
	b.WriteString("- ファイルの削除・変更（読み込みのみ）\n")
	b.WriteString("- 外部プロセスの起動\n")
	b.WriteString("- eval / exec / compile / __import__ の使用\n")
	return b.String()
}

// BuildPrompt assembles the full prompt: system block, the last
// HistoryTurns messages and the new question.
func BuildPrompt(question string, l Layout, f Files, history []chatlog.Turn) string {
	var b strings.Builder
	b.WriteString(SystemPrompt(l, f))
	b.WriteString("\n")

	if len(history) > HistoryTurns {
		history = history[len(history)-HistoryTurns:]
	}
	if len(history) > 0 {
		b.WriteString("【これまでの会話】\n")
		for _, t := range history {
			role := "アシスタント"
			if t.Role == chatlog.RoleUser {
				role = "ユーザー"
			}
			fmt.Fprintf(&b, "%s: %s\n", role, t.Content)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "【新しい質問】\n%s\n\n", question)
	b.WriteString("上記の質問に答えるPythonコードのみを出力してください（説明文は不要）。")
	return b.String()
}
