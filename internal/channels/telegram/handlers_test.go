package telegram

import (
	"testing"

	"github.com/mymmrac/telego"
)

func TestIsCommand(t *testing.T) {
	tests := []struct {
		name string
		msg  *telego.Message
		want bool
	}{
		{
			name: "command entity at offset zero",
			msg: &telego.Message{
				Text:     "/status",
				Entities: []telego.MessageEntity{{Type: "bot_command", Offset: 0, Length: 7}},
			},
			want: true,
		},
		{
			name: "command entity mid-text",
			msg: &telego.Message{
				Text:     "try /status later",
				Entities: []telego.MessageEntity{{Type: "bot_command", Offset: 4, Length: 7}},
			},
			want: false,
		},
		{
			name: "slash prefix without entities",
			msg:  &telego.Message{Text: "/help"},
			want: true,
		},
		{
			name: "plain text",
			msg:  &telego.Message{Text: "你好"},
			want: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isCommand(tt.msg); got != tt.want {
				t.Errorf("isCommand = %t, want %t", got, tt.want)
			}
		})
	}
}

func TestIsServiceMessage(t *testing.T) {
	tests := []struct {
		name string
		msg  *telego.Message
		want bool
	}{
		{"text message", &telego.Message{Text: "hello"}, false},
		{"captioned photo", &telego.Message{Caption: "看这个", Photo: []telego.PhotoSize{{}}}, false},
		{"uncaptioned photo", &telego.Message{Photo: []telego.PhotoSize{{}}}, false},
		{"sticker", &telego.Message{Sticker: &telego.Sticker{}}, false},
		{"member joined", &telego.Message{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isServiceMessage(tt.msg); got != tt.want {
				t.Errorf("isServiceMessage = %t, want %t", got, tt.want)
			}
		})
	}
}
