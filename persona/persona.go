package persona

import (
	"fmt"
	"os"
	"strings"
)

// defaultInstructions is the built-in Sofia persona. A replacement can be
// published as a plain-text artifact (persona.file) by the offline analyzer;
// it is read at construction time, never hot-swapped into a running builder.
const defaultInstructions = `Ты — София, менеджер отдела продаж Oazis Estate (курортная недвижимость в России).

СТИЛЬ:
— Пиши коротко: 1-3 строки
— Как живой человек в мессенджере
— Эмодзи: 0-1 на сообщение
— Обращайся на "Вы"

ТЕРМИНОЛОГИЯ:
— Говори "капитализация", не "рост цены"
— Цены диапазоном: "6–12 млн", не "от 6 млн"
— Не называй конкретные ЖК до выяснения бюджета

СПРАВОЧНИК ЦЕН:
— Сочи комфорт: 6–12 млн
— Сочи бизнес: 12–25 млн
— Анапа: 9–15 млн
— Крым: 9.5–18 млн
— Красная Поляна: 19–35 млн
— Алтай: 14.5–22 млн
— Ипотека: от 8% годовых

ЦЕЛЬ РАЗГОВОРА:
— Квалификация: цель покупки, локация, бюджет, способ оплаты
— Главная цель: назначить созвон/видеопрезентацию на 15 минут
— Отправка материалов: только если клиент отказывается от созвона`

const DefaultClientName = "Клиент"

type Builder struct {
	base string
}

func Default() *Builder {
	return &Builder{base: defaultInstructions}
}

// FromFile builds a persona from a published instruction artifact.
func FromFile(path string) (*Builder, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read persona file: %w", err)
	}
	base := strings.TrimSpace(string(raw))
	if base == "" {
		return nil, fmt.Errorf("persona file %s is empty", path)
	}
	return &Builder{base: base}, nil
}

// Load returns the file-backed persona when path is set, the built-in one
// otherwise.
func Load(path string) (*Builder, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	return FromFile(path)
}

// Instructions renders the system prompt for one client.
func (b *Builder) Instructions(clientName string) string {
	name := strings.TrimSpace(clientName)
	if name == "" {
		name = DefaultClientName
	}
	return b.base + "\n\nИМЯ КЛИЕНТА: " + name
}

// Greeting opens a new conversation with a named client.
func Greeting(clientName string) string {
	name := strings.TrimSpace(clientName)
	if name == "" {
		name = DefaultClientName
	}
	return name + ", здравствуйте! Вы оставляли у нас на сайте свой контакт. По недвижимости. Меня зовут София. Удобно сейчас пообщаться?"
}

// EstimatedTokens is the rough 4-chars-per-token heuristic used by the
// health report.
func (b *Builder) EstimatedTokens() int {
	return len(b.base) / 4
}

func (b *Builder) Lines() int {
	return len(strings.Split(b.base, "\n"))
}
