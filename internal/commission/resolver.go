package commission

import (
	"github.com/lojinha-app/lojinha-backend/pkg/db/models"
	"github.com/lojinha-app/lojinha-backend/pkg/enums"
)

// Resolution pairs the rule chosen for an item with its provenance. A
// nil rule with source "none" is a valid outcome: the item simply earns
// no commission.
type Resolution struct {
	Rule   *models.CommissionRule
	Source enums.CommissionSource
}

// Resolve picks the commission rule applying to one item. Product rules
// beat category rules beat the link default; inactive rules never
// match. When several rules of the same tier match, the first
// configured one wins.
func Resolve(productID, categoryName string, rules []models.CommissionRule) Resolution {
	var categoryRule, defaultRule *models.CommissionRule
	for i := range rules {
		rule := &rules[i]
		if !rule.Active {
			continue
		}
		switch rule.AppliesTo {
		case enums.CommissionAppliesToProduct:
			if rule.ProductID != nil && *rule.ProductID == productID {
				return Resolution{Rule: rule, Source: enums.CommissionSourceProductRule}
			}
		case enums.CommissionAppliesToCategory:
			if categoryRule == nil && rule.CategoryName != nil && *rule.CategoryName == categoryName {
				categoryRule = rule
			}
		case enums.CommissionAppliesToDefault:
			if defaultRule == nil {
				defaultRule = rule
			}
		}
	}
	if categoryRule != nil {
		return Resolution{Rule: categoryRule, Source: enums.CommissionSourceCategoryRule}
	}
	if defaultRule != nil {
		return Resolution{Rule: defaultRule, Source: enums.CommissionSourceDefaultRule}
	}
	return Resolution{Source: enums.CommissionSourceNone}
}
