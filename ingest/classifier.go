package ingest

import (
	"regexp"
	"strings"

	"github.com/wei292224644/regdoc"
)

// Classifier assigns each structural unit a tag from the closed
// content-type taxonomy. An explicit inline annotation is
// authoritative; otherwise an ordered list of keyword heuristics is
// consulted and the first match wins. Units matching no rule stay
// untagged.
type Classifier struct{}

// classifierRule pairs a taxonomy tag with its match predicate.
// Predicates see the unit text and the innermost section title.
type classifierRule struct {
	contentType regdoc.ContentType
	match       func(text, section string) bool
}

var (
	molecularFormulaRe = regexp.MustCompile(`\bC\d+\s*H\d+`)
	numericLimitRe     = regexp.MustCompile(`[≤≥<>]\s*\d|\d+(\.\d+)?\s*[%％]`)
)

func containsAny(s string, keys ...string) bool {
	for _, k := range keys {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

// rules are evaluated in order; earlier rules are more specific.
var rules = []classifierRule{
	{regdoc.ContentScope, func(text, section string) bool {
		return containsAny(text, "适用范围", "本标准适用于", "本法适用于") ||
			containsAny(section, "适用范围", "范围")
	}},
	{regdoc.ContentDefinition, func(text, section string) bool {
		return containsAny(text, "系指", "是指", "本品为") ||
			containsAny(section, "术语", "定义")
	}},
	{regdoc.ContentChemicalStructure, func(text, section string) bool {
		return containsAny(text, "结构式") || containsAny(section, "结构式")
	}},
	{regdoc.ContentChemicalFormula, func(text, section string) bool {
		return containsAny(text, "分子式", "化学式") ||
			containsAny(section, "分子式", "化学式") ||
			molecularFormulaRe.MatchString(text)
	}},
	{regdoc.ContentMolecularWeight, func(text, section string) bool {
		return containsAny(text, "分子量", "相对分子质量") ||
			containsAny(section, "分子量", "相对分子质量")
	}},
	{regdoc.ContentCalculationFormula, func(text, section string) bool {
		return containsAny(text, "按下式计算", "计算公式", "式中：", "式中:") ||
			containsAny(section, "计算")
	}},
	{regdoc.ContentChromatographicMethod, func(text, section string) bool {
		return containsAny(text, "液相色谱", "气相色谱", "色谱柱", "流动相", "进样量") ||
			containsAny(section, "色谱")
	}},
	{regdoc.ContentIdentificationTest, func(text, section string) bool {
		return containsAny(text, "鉴别试验") || containsAny(section, "鉴别")
	}},
	{regdoc.ContentInstrument, func(text, section string) bool {
		return containsAny(section, "仪器", "设备") ||
			containsAny(text, "分光光度计", "分析天平", "马弗炉")
	}},
	{regdoc.ContentReagent, func(text, section string) bool {
		return containsAny(section, "试剂", "溶液") ||
			containsAny(text, "标准滴定溶液", "试剂配制")
	}},
	{regdoc.ContentSpecificationText, func(text, section string) bool {
		return containsAny(text, "不得低于", "不得超过", "不得少于", "不得大于",
			"不低于", "不超过", "不得检出", "应不少于", "应符合")
	}},
	{regdoc.ContentTestMethod, func(text, section string) bool {
		return containsAny(text, "的测定", "试验方法", "检验方法", "按GB", "照下述方法") ||
			containsAny(section, "测定", "试验方法", "检验方法")
	}},
	{regdoc.ContentGeneralRule, func(text, section string) bool {
		return containsAny(text, "通则", "总则") || containsAny(section, "通则", "总则")
	}},
	{regdoc.ContentMetadata, func(text, section string) bool {
		return containsAny(text, "发布", "实施", "归口", "起草单位") &&
			containsAny(text, "标准", "规范")
	}},
}

// Classify tags one structural unit. The input's ContentType, when
// set, is returned unchanged.
func (Classifier) Classify(unit regdoc.StructuralUnit) regdoc.ContentType {
	if unit.ContentType != "" {
		return unit.ContentType
	}
	if unit.Kind == regdoc.UnitNote {
		return regdoc.ContentNote
	}
	if unit.Kind == regdoc.UnitTableRow {
		return classifyTableRow(unit)
	}

	section := ""
	if len(unit.SectionPath) > 0 {
		section = unit.SectionPath[len(unit.SectionPath)-1]
	}
	for _, r := range rules {
		if r.match(unit.Text, section) {
			return r.contentType
		}
	}
	return ""
}

// classifyTableRow tags table rows. Rows whose header or cells carry
// requirement or limit indicators are specification rows; others stay
// untagged.
func classifyTableRow(unit regdoc.StructuralUnit) regdoc.ContentType {
	header := strings.Join(unit.TableHeader, " ")
	if containsAny(header, "要求", "指标", "限量", "规格", "标准") {
		return regdoc.ContentSpecificationTable
	}
	if numericLimitRe.MatchString(unit.Text) ||
		containsAny(unit.Text, "不得低于", "不得超过", "不低于", "不超过") {
		return regdoc.ContentSpecificationTable
	}
	return ""
}
