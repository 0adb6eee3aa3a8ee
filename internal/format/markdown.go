package format

import (
	"regexp"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ParseResult contains plain text and message entities
type ParseResult struct {
	Text     string
	Entities []tgbotapi.MessageEntity
}

// UTF16Len calculates the UTF-16 length of a string. Telegram measures
// entity offsets and lengths in UTF-16 code units.
func UTF16Len(s string) int {
	length := 0
	for _, b := range []byte(s) {
		if (b & 0xc0) != 0x80 {
			if b >= 0xf0 {
				length += 2 // surrogate pair
			} else {
				length += 1
			}
		}
	}
	return length
}

var (
	boldRe = regexp.MustCompile(`\*\*(.+?)\*\*`)
	codeRe = regexp.MustCompile("`([^`]+?)`")
)

// ParseMarkdown strips **bold** and `code` markers from the text and returns
// the plain text plus the matching Telegram entities. Spans are consumed
// leftmost-first, so every offset is measured against already-cleaned text
// and the entities come out in the offset order Telegram requires.
func ParseMarkdown(text string) ParseResult {
	var entities []tgbotapi.MessageEntity
	result := text

	for {
		boldLoc := boldRe.FindStringSubmatchIndex(result)
		codeLoc := codeRe.FindStringSubmatchIndex(result)
		if boldLoc == nil && codeLoc == nil {
			break
		}

		loc, entityType := boldLoc, "bold"
		if boldLoc == nil || (codeLoc != nil && codeLoc[0] < boldLoc[0]) {
			loc, entityType = codeLoc, "code"
		}

		innerText := result[loc[2]:loc[3]]
		entities = append(entities, tgbotapi.MessageEntity{
			Type:   entityType,
			Offset: UTF16Len(result[:loc[0]]),
			Length: UTF16Len(innerText),
		})

		result = result[:loc[0]] + innerText + result[loc[1]:]
	}

	return ParseResult{
		Text:     strings.TrimRight(result, " \n"),
		Entities: entities,
	}
}
