package usecase

import (
	"fmt"
	"strings"

	"github.com/dongjiahong/qa-system/internal/domain"
)

// QuestionPromptInput contains the pieces that feed the generation prompt.
type QuestionPromptInput struct {
	Content    string
	Difficulty domain.Difficulty
}

// EvaluationPromptInput contains the pieces that feed the grading prompt.
type EvaluationPromptInput struct {
	Question         string
	UserAnswer       string
	ReferenceContext string
}

// PromptBuilder renders the prompts sent to the LLM.
type PromptBuilder interface {
	BuildQuestionPrompt(input QuestionPromptInput) (string, error)
	BuildEvaluationPrompt(input EvaluationPromptInput) (string, error)
}

// quizPromptBuilder renders Chinese drill prompts instructing the model to
// answer in a fixed JSON shape.
type quizPromptBuilder struct{}

// NewQuizPromptBuilder creates the default prompt builder.
func NewQuizPromptBuilder() PromptBuilder {
	return quizPromptBuilder{}
}

type difficultyRubric struct {
	label        string
	requirements []string
}

var difficultyRubrics = map[domain.Difficulty]difficultyRubric{
	domain.DifficultyEasy: {
		label: "简单",
		requirements: []string{
			"测试基本概念和定义的理解",
			"问题应该直接明了",
			"答案应该能在原文中直接找到",
		},
	},
	domain.DifficultyMedium: {
		label: "中等",
		requirements: []string{
			"测试对概念的理解和应用",
			"需要一定的分析和推理",
			"可能需要结合多个知识点",
		},
	},
	domain.DifficultyHard: {
		label: "困难",
		requirements: []string{
			"测试深层理解和批判性思维",
			"需要综合分析和评价",
			"可能涉及比较、对比或创新应用",
		},
	},
}

func (quizPromptBuilder) BuildQuestionPrompt(input QuestionPromptInput) (string, error) {
	if strings.TrimSpace(input.Content) == "" {
		return "", fmt.Errorf("prompt content is empty")
	}
	rubric, ok := difficultyRubrics[input.Difficulty]
	if !ok {
		return "", fmt.Errorf("unknown difficulty %q", input.Difficulty)
	}

	var sb strings.Builder
	sb.WriteString("基于以下知识内容，生成一个")
	sb.WriteString(rubric.label)
	sb.WriteString("难度的学习问题，并提供相关的背景信息。\n\n")

	sb.WriteString("知识内容：\n")
	sb.WriteString(input.Content)
	sb.WriteString("\n\n问题要求：\n")
	for _, req := range rubric.requirements {
		sb.WriteString("- ")
		sb.WriteString(req)
		sb.WriteString("\n")
	}

	sb.WriteString("\n生成规则：\n")
	sb.WriteString("1. 问题必须用中文表达\n")
	sb.WriteString("2. 问题应该清晰、具体、有针对性\n")
	sb.WriteString("3. 问题必须以问号结尾\n")
	sb.WriteString("4. 避免是非题和选择题格式\n")
	sb.WriteString("5. 问题应该能够测试对知识的真正理解\n")
	sb.WriteString("6. 问题长度控制在10-100字之间\n\n")

	sb.WriteString("请按照以下JSON格式返回结果：\n")
	sb.WriteString("{\n")
	sb.WriteString("    \"question\": \"生成的问题内容\",\n")
	sb.WriteString("    \"background\": \"问题相关的背景信息，帮助理解问题的上下文和重要性\"\n")
	sb.WriteString("}\n\n")
	sb.WriteString("请确保返回有效的JSON格式：")

	return sb.String(), nil
}

func (quizPromptBuilder) BuildEvaluationPrompt(input EvaluationPromptInput) (string, error) {
	if strings.TrimSpace(input.Question) == "" {
		return "", fmt.Errorf("evaluation prompt question is empty")
	}

	var sb strings.Builder
	sb.WriteString("请评估以下用户答案的正确性和质量。\n\n")

	sb.WriteString("问题：\n")
	sb.WriteString(input.Question)
	sb.WriteString("\n\n用户答案：\n")
	sb.WriteString(input.UserAnswer)
	sb.WriteString("\n\n参考知识：\n")
	sb.WriteString(input.ReferenceContext)

	sb.WriteString("\n\n请按照以下JSON格式返回评估结果：\n")
	sb.WriteString("{\n")
	sb.WriteString("    \"is_correct\": true/false,\n")
	sb.WriteString("    \"score\": 0-10的分数,\n")
	sb.WriteString("    \"feedback\": \"详细的反馈说明，包括答案的优缺点\",\n")
	sb.WriteString("    \"reference_answer\": \"基于参考知识的标准答案\",\n")
	sb.WriteString("    \"missing_points\": [\"缺失的要点1\", \"缺失的要点2\"],\n")
	sb.WriteString("    \"strengths\": [\"答案的优点1\", \"答案的优点2\"]\n")
	sb.WriteString("}\n\n")

	sb.WriteString("评估标准：\n")
	sb.WriteString("1. 事实准确性（4分）：答案是否符合参考知识中的事实\n")
	sb.WriteString("2. 完整性（3分）：答案是否涵盖了问题的关键要点\n")
	sb.WriteString("3. 相关性（2分）：答案是否直接回答了问题\n")
	sb.WriteString("4. 清晰度（1分）：答案表达是否清晰易懂\n\n")

	sb.WriteString("评估要求：\n")
	sb.WriteString("- 如果答案基本正确且完整，is_correct为true，分数7分以上\n")
	sb.WriteString("- 如果答案部分正确但有重要遗漏，is_correct为false，分数4-7分\n")
	sb.WriteString("- 如果答案错误或严重不完整，is_correct为false，分数4分以下\n")
	sb.WriteString("- feedback应该具体指出答案的问题和改进建议\n")
	sb.WriteString("- reference_answer应该基于参考知识给出完整准确的答案\n")
	sb.WriteString("- missing_points列出答案中缺失的重要要点\n")
	sb.WriteString("- strengths列出答案中的优点和正确之处\n\n")
	sb.WriteString("请确保返回有效的JSON格式：")

	return sb.String(), nil
}
