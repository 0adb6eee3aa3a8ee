package handlers

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/eg0renkov/bot-sub000/internal/format"
	"github.com/eg0renkov/bot-sub000/internal/models"
)

func (h *Handlers) handleSettings(ctx context.Context, msg *tgbotapi.Message) {
	settings, err := h.repos.Settings.GetOrCreate(ctx, msg.From.ID)
	if err != nil {
		log.Printf("Failed to get settings for %d: %v", msg.From.ID, err)
		h.sendMessage(msg.Chat.ID, "Не удалось загрузить настройки, попробуйте позже")
		return
	}

	parsed := format.ParseMarkdown(settingsText(settings))
	reply := tgbotapi.NewMessage(msg.Chat.ID, parsed.Text)
	reply.Entities = parsed.Entities
	reply.ReplyMarkup = settingsKeyboard(settings)
	if _, err := h.api.Send(reply); err != nil {
		log.Printf("Failed to send settings: %v", err)
	}
}

func (h *Handlers) handleSettingsToggle(ctx context.Context, callback *tgbotapi.CallbackQuery, field string) {
	if _, err := h.repos.Settings.Toggle(ctx, callback.From.ID, field); err != nil {
		log.Printf("Failed to toggle %s for %d: %v", field, callback.From.ID, err)
		h.answerCallbackWithAlert(callback.ID, "Не получилось, попробуйте ещё раз")
		return
	}

	settings, err := h.repos.Settings.GetByUserID(ctx, callback.From.ID)
	if err != nil {
		log.Printf("Failed to reload settings for %d: %v", callback.From.ID, err)
		return
	}

	parsed := format.ParseMarkdown(settingsText(settings))
	edit := tgbotapi.NewEditMessageTextAndMarkup(
		callback.Message.Chat.ID, callback.Message.MessageID, parsed.Text, settingsKeyboard(settings))
	edit.Entities = parsed.Entities
	if _, err := h.api.Send(edit); err != nil {
		log.Printf("Failed to update settings message: %v", err)
	}
}

func (h *Handlers) handleTimezone(ctx context.Context, msg *tgbotapi.Message) {
	arg := strings.TrimSpace(msg.CommandArguments())
	if arg == "" {
		settings, err := h.repos.Settings.GetOrCreate(ctx, msg.From.ID)
		if err != nil {
			log.Printf("Failed to get settings for %d: %v", msg.From.ID, err)
			h.sendMessage(msg.Chat.ID, "Не удалось загрузить настройки, попробуйте позже")
			return
		}
		h.sendMessage(msg.Chat.ID, "Текущий часовой пояс: "+settings.Timezone+
			"\nСменить: /timezone Europe/Moscow")
		return
	}

	if _, err := h.repos.Settings.GetOrCreate(ctx, msg.From.ID); err != nil {
		log.Printf("Failed to ensure settings for %d: %v", msg.From.ID, err)
		h.sendMessage(msg.Chat.ID, "Не удалось обновить настройки, попробуйте позже")
		return
	}

	if _, err := h.repos.Settings.Update(ctx, msg.From.ID, models.SettingsPatch{Timezone: &arg}); err != nil {
		h.sendMessage(msg.Chat.ID, "Неизвестный часовой пояс. Пример: Europe/Moscow")
		return
	}
	h.sendMessage(msg.Chat.ID, "🌍 Часовой пояс обновлён: "+arg)
}

func (h *Handlers) handleAdvance(ctx context.Context, msg *tgbotapi.Message) {
	arg := strings.TrimSpace(msg.CommandArguments())
	minutes, err := strconv.Atoi(arg)
	if err != nil || minutes < 0 || minutes > 24*60 {
		h.sendMessage(msg.Chat.ID, "Укажите минуты от 0 до 1440, например: /advance 10")
		return
	}

	if _, err := h.repos.Settings.GetOrCreate(ctx, msg.From.ID); err != nil {
		log.Printf("Failed to ensure settings for %d: %v", msg.From.ID, err)
		h.sendMessage(msg.Chat.ID, "Не удалось обновить настройки, попробуйте позже")
		return
	}

	if _, err := h.repos.Settings.Update(ctx, msg.From.ID, models.SettingsPatch{AdvanceNotification: &minutes}); err != nil {
		log.Printf("Failed to set advance notification for %d: %v", msg.From.ID, err)
		h.sendMessage(msg.Chat.ID, "Не удалось обновить настройки, попробуйте позже")
		return
	}

	if minutes == 0 {
		h.sendMessage(msg.Chat.ID, "Предварительные уведомления отключены")
		return
	}
	h.sendMessage(msg.Chat.ID, fmt.Sprintf("⏳ Буду предупреждать за %d мин", minutes))
}

func settingsText(s *models.UserSettings) string {
	text := "⚙️ **Настройки**\n\n"
	text += "Напоминания: " + onOff(s.Enabled) + "\n"
	text += "Звук: " + onOff(s.SoundEnabled) + "\n"
	text += "Сводка дня: " + onOff(s.DailySummary)
	if s.DailySummary {
		text += " в " + s.DailySummaryTime
	}
	text += "\nЧасовой пояс: " + s.Timezone
	if s.AdvanceNotification > 0 {
		text += fmt.Sprintf("\nПредупреждать за %d мин", s.AdvanceNotification)
	}
	return text
}

func settingsKeyboard(s *models.UserSettings) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(onOff(s.Enabled)+" Напоминания", "settings_toggle:enabled"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(onOff(s.SoundEnabled)+" Звук", "settings_toggle:sound_enabled"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(onOff(s.DailySummary)+" Сводка дня", "settings_toggle:daily_summary"),
		),
	)
}

func onOff(enabled bool) string {
	if enabled {
		return "🔔"
	}
	return "🔕"
}
