package commands

import (
	"context"
	"errors"
	"os"

	"github.com/manifoldco/promptui"
	"golang.org/x/term"

	"github.com/marcosbolanos/pgvector-age/internal/core/embedding"
)

// terminalPrompter は promptui で y/N を尋ねる
// 標準入力が端末でない場合は embedding.ErrPromptUnavailable を返す
type terminalPrompter struct {
	isTerminal func() bool
}

func newTerminalPrompter() *terminalPrompter {
	return &terminalPrompter{
		isTerminal: func() bool { return term.IsTerminal(int(os.Stdin.Fd())) },
	}
}

var _ embedding.Prompter = (*terminalPrompter)(nil)

func (p *terminalPrompter) Confirm(ctx context.Context, question string) (bool, error) {
	if !p.isTerminal() {
		return false, embedding.ErrPromptUnavailable
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	prompt := promptui.Prompt{
		Label:     question,
		IsConfirm: true,
	}
	if _, err := prompt.Run(); err != nil {
		// "n" や空入力は ErrAbort
		if errors.Is(err, promptui.ErrAbort) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
