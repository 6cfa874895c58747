package feed

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// plainText 把 RSS 描述里的 HTML 片段还原为纯文本，块级元素之间补空格，避免相邻单词粘连。
// 不含 '<' 的输入只做空白折叠。
func plainText(s string) string {
	if !strings.Contains(s, "<") {
		return normSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return normSpace(s)
	}
	doc.Find("script, style").Remove()
	doc.Find("br").ReplaceWithHtml(" ")
	doc.Find("p, div, li, tr, td, h1, h2, h3, h4").AppendHtml(" ")
	return normSpace(doc.Text())
}

func normSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
