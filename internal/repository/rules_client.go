package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"medical-triage/internal/domain"
	"medical-triage/internal/triage"
)

const (
	pkPrefixRuleset = "RULESET#"
	skPrefixLang    = "LANG#"
	DefaultRuleset  = "default"
)

// dynamodbAPI is the minimal DynamoDB interface required by Client.
// Defined here for testability.
type dynamodbAPI interface {
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// Client reads and writes urgency rule sets kept in a DynamoDB table.
// Each language of a rule set is one item keyed by RULESET#<name> / LANG#<tag>.
type Client struct {
	api       dynamodbAPI
	tableName string
	ruleset   string
	now       func() time.Time
}

// New creates a new repository Client for the named rule set.
func New(api dynamodbAPI, tableName, ruleset string) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	ruleset = strings.TrimSpace(ruleset)
	if ruleset == "" {
		ruleset = DefaultRuleset
	}
	return &Client{api: api, tableName: tableName, ruleset: ruleset, now: time.Now}, nil
}

// Ruleset returns the resolved rule set name.
func (c *Client) Ruleset() string {
	return c.ruleset
}

func rulesetPK(name string) string {
	return pkPrefixRuleset + name
}

func langSK(lang domain.Language) string {
	return skPrefixLang + string(lang)
}

// LoadRules reads every language item of the rule set. The returned table is
// validated; an empty rule set is an error so callers can fall back to the
// built-in rules.
func (c *Client) LoadRules(ctx context.Context) (triage.RuleTable, error) {
	table := triage.RuleTable{}
	var startKey map[string]types.AttributeValue
	for {
		out, err := c.api.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(c.tableName),
			KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk":     &types.AttributeValueMemberS{Value: rulesetPK(c.ruleset)},
				":prefix": &types.AttributeValueMemberS{Value: skPrefixLang},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("repository: LoadRules query: %w", err)
		}
		for _, item := range out.Items {
			lang, rules, err := itemToRules(item)
			if err != nil {
				return nil, fmt.Errorf("repository: LoadRules unmarshal: %w", err)
			}
			table[lang] = rules
		}
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		startKey = out.LastEvaluatedKey
	}
	if len(table) == 0 {
		return nil, fmt.Errorf("repository: ruleset %q has no rules", c.ruleset)
	}
	if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("repository: ruleset %q: %w", c.ruleset, err)
	}
	return table, nil
}

// SaveRules writes every language of table into the rule set, replacing
// existing items for those languages.
func (c *Client) SaveRules(ctx context.Context, table triage.RuleTable) error {
	if err := table.Validate(); err != nil {
		return fmt.Errorf("repository: SaveRules: %w", err)
	}
	updatedAt := c.now().UTC().Format(time.RFC3339)
	for lang, rules := range table {
		_, err := c.api.PutItem(ctx, &dynamodb.PutItemInput{
			TableName: aws.String(c.tableName),
			Item:      rulesItem(c.ruleset, lang, rules, updatedAt),
		})
		if err != nil {
			return fmt.Errorf("repository: SaveRules %q: %w", lang, err)
		}
	}
	return nil
}

func rulesItem(ruleset string, lang domain.Language, rules triage.LanguageRules, updatedAt string) map[string]types.AttributeValue {
	keywords := make([]types.AttributeValue, 0, len(rules.EmergencyKeywords))
	for _, k := range rules.EmergencyKeywords {
		keywords = append(keywords, &types.AttributeValueMemberS{Value: k})
	}
	return map[string]types.AttributeValue{
		"PK":        &types.AttributeValueMemberS{Value: rulesetPK(ruleset)},
		"SK":        &types.AttributeValueMemberS{Value: langSK(lang)},
		"keywords":  &types.AttributeValueMemberL{Value: keywords},
		"pattern":   &types.AttributeValueMemberS{Value: rules.UrgentPattern},
		"updatedAt": &types.AttributeValueMemberS{Value: updatedAt},
	}
}

// itemToRules converts a DynamoDB attribute map to one language's rules.
func itemToRules(item map[string]types.AttributeValue) (domain.Language, triage.LanguageRules, error) {
	sk, err := strAttr(item, "SK")
	if err != nil {
		return "", triage.LanguageRules{}, err
	}
	lang := strings.TrimPrefix(sk, skPrefixLang)
	if lang == "" || lang == sk {
		return "", triage.LanguageRules{}, fmt.Errorf("repository: malformed sort key %q", sk)
	}
	pattern, err := strAttr(item, "pattern")
	if err != nil {
		return "", triage.LanguageRules{}, err
	}
	keywords, err := stringListAttr(item, "keywords")
	if err != nil {
		return "", triage.LanguageRules{}, err
	}
	return domain.Language(lang), triage.LanguageRules{
		EmergencyKeywords: keywords,
		UrgentPattern:     pattern,
	}, nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}

// stringListAttr accepts either a list of strings or a string set, since rule
// items are often edited by hand in the console.
func stringListAttr(item map[string]types.AttributeValue, key string) ([]string, error) {
	v, ok := item[key]
	if !ok {
		return nil, fmt.Errorf("repository: missing attribute %q", key)
	}
	switch av := v.(type) {
	case *types.AttributeValueMemberSS:
		return append([]string(nil), av.Value...), nil
	case *types.AttributeValueMemberL:
		out := make([]string, 0, len(av.Value))
		for i, elem := range av.Value {
			s, ok := elem.(*types.AttributeValueMemberS)
			if !ok {
				return nil, fmt.Errorf("repository: attribute %q element %d is not a string", key, i)
			}
			out = append(out, s.Value)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("repository: attribute %q is not a string list", key)
	}
}
