package engine

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ListenStateResilient: универсальный цикл "живучей" подписки на канал Redis.
// Обрабатывает переподключения и логирование, разбор сообщения на стороне onMessage.
func ListenStateResilient(
	ctx context.Context,
	rdb *redis.Client,
	logger *zap.Logger,
	channel string,
	onReconnect func() error, // синхронизация при каждом успешном коннекте
	onMessage func(payload string),
) {
	for {
		pubsub := rdb.Subscribe(ctx, channel)

		if _, err := pubsub.Receive(ctx); err != nil {
			pubsub.Close()
			if ctx.Err() != nil {
				return
			}
			logger.Error("failed to subscribe", zap.String("chan", channel), zap.Error(err))
			if !sleepCtx(ctx, 5*time.Second) {
				return
			}
			continue
		}

		if err := onReconnect(); err != nil {
			logger.Error("sync failed on reconnect", zap.Error(err))
		}

		ch := pubsub.Channel()

	loop:
		for {
			select {
			case <-ctx.Done():
				pubsub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					break loop // канал закрыт, идем на переподключение
				}

				onMessage(msg.Payload)
			}
		}

		pubsub.Close()
		if !sleepCtx(ctx, time.Second) {
			return
		}
	}
}

// ParseSignal разбирает "id:status". id может содержать двоеточия, статус: последний сегмент.
func ParseSignal(payload string) (id string, status bool, ok bool) {
	i := strings.LastIndex(payload, ":")
	if i < 0 {
		return "", false, false
	}
	id, raw := payload[:i], strings.ToLower(payload[i+1:])
	switch raw {
	case "on", "true":
		return id, true, true
	case "off", "false":
		return id, false, true
	}
	return "", false, false
}

// FormatSignal: обратная к ParseSignal операция.
func FormatSignal(id string, status bool) string {
	if status {
		return id + ":on"
	}
	return id + ":off"
}

// ParseStopSignal разбирает "<origin>:<seq>:<operator>:on|off". Полезная нагрузка
// без версии ("<operator>:on|off") дает сигнал с пустым Origin.
func ParseStopSignal(payload string) (StopSignal, bool) {
	id, status, ok := ParseSignal(payload)
	if !ok {
		return StopSignal{}, false
	}
	sig := StopSignal{Active: status, OperatorID: id}

	parts := strings.SplitN(id, ":", 3)
	if len(parts) != 3 || parts[0] == "" {
		return sig, true
	}
	seq, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil || seq == 0 {
		return sig, true
	}
	sig.Origin, sig.Seq, sig.OperatorID = parts[0], seq, parts[2]
	return sig, true
}

func FormatStopSignal(sig StopSignal) string {
	if sig.Origin == "" {
		return FormatSignal(sig.OperatorID, sig.Active)
	}
	id := sig.Origin + ":" + strconv.FormatUint(sig.Seq, 10) + ":" + sig.OperatorID
	return FormatSignal(id, sig.Active)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
