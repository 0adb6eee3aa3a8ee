package handlers

import (
	"context"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// historyDepth bounds how many stored turns are replayed to the model.
const historyDepth = 20

func (h *Handlers) handleChat(ctx context.Context, msg *tgbotapi.Message) {
	if h.ai == nil {
		h.sendMessage(msg.Chat.ID, "Ассистент не настроен. Используйте /help для списка команд")
		return
	}

	history, err := h.repos.Chat.Recent(ctx, msg.From.ID, historyDepth)
	if err != nil {
		log.Printf("Failed to load chat history for %d: %v", msg.From.ID, err)
		history = nil
	}

	reply, err := h.ai.Chat(ctx, history, msg.Text)
	if err != nil {
		log.Printf("Chat completion failed for %d: %v", msg.From.ID, err)
		h.sendMessage(msg.Chat.ID, "Не получилось ответить, попробуйте ещё раз")
		return
	}

	// History failures degrade the next reply's context, not this one
	if err := h.repos.Chat.Append(ctx, msg.From.ID, "user", msg.Text); err != nil {
		log.Printf("Failed to store user message for %d: %v", msg.From.ID, err)
	}
	if err := h.repos.Chat.Append(ctx, msg.From.ID, "assistant", reply); err != nil {
		log.Printf("Failed to store assistant reply for %d: %v", msg.From.ID, err)
	}

	h.sendMessage(msg.Chat.ID, reply)
}

func (h *Handlers) handleClearHistory(ctx context.Context, msg *tgbotapi.Message) {
	if err := h.repos.Chat.Clear(ctx, msg.From.ID); err != nil {
		log.Printf("Failed to clear chat history for %d: %v", msg.From.ID, err)
		h.sendMessage(msg.Chat.ID, "Не удалось очистить историю, попробуйте позже")
		return
	}
	h.sendMessage(msg.Chat.ID, "🧹 История диалога очищена")
}
