package generation

import (
	"fmt"
	"time"

	"github.com/mmeshcher/woodcraft-storefront/internal/model"
)

// Подсказки о ходе генерации. На переходы состояний не влияют.
const (
	msgStarting     = "Starting AI generation..."
	msgAnalyzing    = "Analyzing your room with AI Vision..."
	msgGenerating   = "Generating your design..."
	msgRoomAnalyzed = "Room analyzed! Now generating your design..."
	msgAlmostThere  = "Almost there... creating your custom design..."
)

// progressBeforePoll возвращает подсказку, которая показывается перед опросом номер n.
func progressBeforePoll(n int, interval time.Duration) (string, bool) {
	switch {
	case n == 5:
		return msgGenerating, true
	case n == 10:
		return msgAlmostThere, true
	case n > 15 && n%5 == 0:
		elapsed := time.Duration(n) * interval
		return fmt.Sprintf("Still generating... (%d seconds elapsed)", int(elapsed.Seconds())), true
	}
	return "", false
}

// progressAfterPoll возвращает подсказку по результату опроса номер n.
func progressAfterPoll(n int, status model.GenerationStatus) (string, bool) {
	if n == 8 && status == model.GenerationGenerating {
		return msgRoomAnalyzed, true
	}
	return "", false
}
