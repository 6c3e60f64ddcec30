package biz

import (
	"fmt"
	"strings"

	"github.com/kart-io/gitnar/internal/model"
	"github.com/kart-io/gitnar/pkg/errors"
)

// PromptConfig 上下文组装配置。
type PromptConfig struct {
	// Budget 提示词字符预算。
	Budget int
}

// PromptInput 一次组装所需的全部输入。
type PromptInput struct {
	// ScopeLabel 目标仓库或仓库组的显示名称。
	ScopeLabel string
	// MultiRepo 为 true 时片段块标注所属仓库。
	MultiRepo bool
	// Hits 检索结果，按相似度降序。
	Hits []*model.Hit
	// History 历史轮次，时间正序。
	History []*model.ConversationMessage
	// Question 当前问题。
	Question string
}

// PromptResult 组装结果。Kept 是实际进入提示词的片段，
// 被预算裁掉的片段不出现在引用列表中。
type PromptResult struct {
	Prompt string
	Kept   []*model.Hit
}

// PromptBuilder 负责确定性的上下文组装。
type PromptBuilder struct {
	config *PromptConfig
}

// NewPromptBuilder 创建上下文组装器。
func NewPromptBuilder(config *PromptConfig) *PromptBuilder {
	return &PromptBuilder{config: config}
}

// Build 按固定顺序渲染提示词：说明头、片段块（检索顺序）、
// 历史（时间正序、带角色标签）、当前问题。
//
// 超出预算时整块裁剪：先丢弃相似度最低的片段，再丢弃最早的历史轮次。
// 问题本身和最近一条历史永不丢弃。只有问题单独就超出预算时才返回
// ContextTooLarge。
func (b *PromptBuilder) Build(input *PromptInput) (*PromptResult, error) {
	questionBlock := "Question: " + input.Question + "\n"
	budget := b.config.Budget
	if budget > 0 && len(questionBlock) > budget {
		return nil, errors.ErrQAContextTooLarge.WithMessagef(
			"question length %d exceeds budget %d", len(questionBlock), budget)
	}

	header := b.renderHeader(input)
	fragmentBlocks := make([]string, len(input.Hits))
	for i, hit := range input.Hits {
		fragmentBlocks[i] = renderFragment(i+1, hit, input.MultiRepo)
	}
	historyLines := make([]string, len(input.History))
	for i, msg := range input.History {
		historyLines[i] = fmt.Sprintf("%s: %s\n", msg.Role, msg.Content)
	}

	keptHits := len(fragmentBlocks)
	historyStart := 0

	total := func() int {
		n := len(header) + len(questionBlock)
		for _, block := range fragmentBlocks[:keptHits] {
			n += len(block)
		}
		if historyStart < len(historyLines) {
			n += len(historyHeader)
			for _, line := range historyLines[historyStart:] {
				n += len(line)
			}
		}
		return n
	}

	if budget > 0 {
		// 先裁片段：从相似度最低的开始整块丢弃
		for keptHits > 0 && total() > budget {
			keptHits--
		}
		// 再裁历史：从最早的轮次开始丢弃，最近一条保留
		for historyStart < len(historyLines)-1 && total() > budget {
			historyStart++
		}
	}

	var sb strings.Builder
	sb.WriteString(header)
	for _, block := range fragmentBlocks[:keptHits] {
		sb.WriteString(block)
	}
	if historyStart < len(historyLines) {
		sb.WriteString(historyHeader)
		for _, line := range historyLines[historyStart:] {
			sb.WriteString(line)
		}
	}
	sb.WriteString(questionBlock)

	return &PromptResult{
		Prompt: sb.String(),
		Kept:   input.Hits[:keptHits],
	}, nil
}

const historyHeader = "\nConversation so far:\n"

func (b *PromptBuilder) renderHeader(input *PromptInput) string {
	target := "repository"
	if input.MultiRepo {
		target = "repository group"
	}
	return fmt.Sprintf(
		"You are a code assistant answering questions about the %s %q.\n"+
			"Base your answer on the code fragments below. Cite file paths when relevant.\n\n",
		target, input.ScopeLabel)
}

func renderFragment(n int, hit *model.Hit, multiRepo bool) string {
	frag := hit.Fragment
	if multiRepo {
		return fmt.Sprintf("[FRAGMENT %d] repo=%s file=%s lines=%d-%d\n%s\n\n",
			n, frag.RepoID, frag.Path, frag.StartLine, frag.EndLine, frag.Content)
	}
	return fmt.Sprintf("[FRAGMENT %d] file=%s lines=%d-%d\n%s\n\n",
		n, frag.Path, frag.StartLine, frag.EndLine, frag.Content)
}
