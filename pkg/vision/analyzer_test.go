package vision

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderStructuredConvertsJSON(t *testing.T) {
	raw := `{"indicator_classification":"道路安全","specific_problem":"护栏缺失","detailed_description":"桥侧护栏整段缺失，存在坠落风险。"}`

	got := RenderStructured(raw)

	assert.Contains(t, got, "**指标分类**: 道路安全")
	assert.Contains(t, got, "**具体问题**: 护栏缺失")
	assert.Contains(t, got, "**详细描述**: 桥侧护栏整段缺失，存在坠落风险。")
}

func TestRenderStructuredStripsCodeFence(t *testing.T) {
	raw := "```json\n{\"indicator_classification\":\"市容环境\",\"specific_problem\":\"垃圾堆积\",\"detailed_description\":\"街角生活垃圾未清运。\"}\n```"

	got := RenderStructured(raw)

	assert.Contains(t, got, "**指标分类**: 市容环境")
}

func TestRenderStructuredPassesThroughPlainText(t *testing.T) {
	raw := "路面出现横向裂缝，宽约两厘米。"

	assert.Equal(t, raw, RenderStructured(raw))
}

// Rendered output fed back in must come out unchanged, so the
// conversion is safe to live in exactly one layer.
func TestRenderStructuredIdempotent(t *testing.T) {
	raw := `{"indicator_classification":"道路安全","specific_problem":"护栏缺失","detailed_description":"桥侧护栏整段缺失。"}`

	once := RenderStructured(raw)
	twice := RenderStructured(once)

	assert.Equal(t, once, twice)
}
