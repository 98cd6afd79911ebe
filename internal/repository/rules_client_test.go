package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"

	"medical-triage/internal/domain"
	"medical-triage/internal/triage"
)

type fakeDynamo struct {
	queryOuts   []*dynamodb.QueryOutput
	queryErr    error
	putErr      error
	queryInputs []*dynamodb.QueryInput
	putInputs   []*dynamodb.PutItemInput
}

func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.queryInputs = append(f.queryInputs, in)
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	i := len(f.queryInputs) - 1
	if i >= len(f.queryOuts) {
		return &dynamodb.QueryOutput{}, nil
	}
	return f.queryOuts[i], nil
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.putInputs = append(f.putInputs, in)
	return &dynamodb.PutItemOutput{}, f.putErr
}

func makeRulesItem(lang, pattern string, keywords ...string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":       &types.AttributeValueMemberS{Value: rulesetPK(DefaultRuleset)},
		"SK":       &types.AttributeValueMemberS{Value: skPrefixLang + lang},
		"keywords": &types.AttributeValueMemberSS{Value: keywords},
		"pattern":  &types.AttributeValueMemberS{Value: pattern},
	}
}

func mustNewClient(t *testing.T, db *fakeDynamo) *Client {
	t.Helper()
	c, err := New(db, "rules-table", "")
	require.NoError(t, err)
	return c
}

func TestNew_Validates(t *testing.T) {
	_, err := New(nil, "t", "")
	require.Error(t, err)
	_, err = New(&fakeDynamo{}, " ", "")
	require.Error(t, err)

	c, err := New(&fakeDynamo{}, "t", " clinic-a ")
	require.NoError(t, err)
	require.Equal(t, "clinic-a", c.Ruleset())

	c, err = New(&fakeDynamo{}, "t", "")
	require.NoError(t, err)
	require.Equal(t, DefaultRuleset, c.Ruleset())
}

func TestLoadRules_HappyPath(t *testing.T) {
	db := &fakeDynamo{queryOuts: []*dynamodb.QueryOutput{{
		Items: []map[string]types.AttributeValue{
			makeRulesItem("en", "urgent|24 hours", "emergency", "911"),
			makeRulesItem("fr", "urgent|24 heures", "urgence"),
		},
	}}}
	c := mustNewClient(t, db)

	table, err := c.LoadRules(context.Background())
	require.NoError(t, err)
	require.Len(t, table, 2)
	require.Equal(t, []string{"emergency", "911"}, table[domain.LanguageEnglish].EmergencyKeywords)
	require.Equal(t, "urgent|24 heures", table[domain.LanguageFrench].UrgentPattern)

	in := db.queryInputs[0]
	require.Equal(t, "rules-table", *in.TableName)
	require.Equal(t, &types.AttributeValueMemberS{Value: "RULESET#default"}, in.ExpressionAttributeValues[":pk"])
}

func TestLoadRules_Paginates(t *testing.T) {
	db := &fakeDynamo{queryOuts: []*dynamodb.QueryOutput{
		{
			Items:            []map[string]types.AttributeValue{makeRulesItem("fr", "urgent", "urgence")},
			LastEvaluatedKey: map[string]types.AttributeValue{"PK": &types.AttributeValueMemberS{Value: "x"}},
		},
		{
			Items: []map[string]types.AttributeValue{makeRulesItem("en", "urgent", "emergency")},
		},
	}}
	c := mustNewClient(t, db)

	table, err := c.LoadRules(context.Background())
	require.NoError(t, err)
	require.Len(t, table, 2)
	require.Len(t, db.queryInputs, 2)
	require.NotNil(t, db.queryInputs[1].ExclusiveStartKey)
}

func TestLoadRules_Errors(t *testing.T) {
	c := mustNewClient(t, &fakeDynamo{queryErr: errors.New("throttled")})
	_, err := c.LoadRules(context.Background())
	require.ErrorContains(t, err, "throttled")

	c = mustNewClient(t, &fakeDynamo{})
	_, err = c.LoadRules(context.Background())
	require.ErrorContains(t, err, "has no rules")

	c = mustNewClient(t, &fakeDynamo{queryOuts: []*dynamodb.QueryOutput{{
		Items: []map[string]types.AttributeValue{makeRulesItem("fr", "urgent", "urgence")},
	}}})
	_, err = c.LoadRules(context.Background())
	require.ErrorContains(t, err, "default language")

	c = mustNewClient(t, &fakeDynamo{queryOuts: []*dynamodb.QueryOutput{{
		Items: []map[string]types.AttributeValue{makeRulesItem("en", "(", "emergency")},
	}}})
	_, err = c.LoadRules(context.Background())
	require.ErrorContains(t, err, "compile urgent pattern")

	bad := makeRulesItem("en", "urgent", "emergency")
	bad["keywords"] = &types.AttributeValueMemberN{Value: "1"}
	c = mustNewClient(t, &fakeDynamo{queryOuts: []*dynamodb.QueryOutput{{Items: []map[string]types.AttributeValue{bad}}}})
	_, err = c.LoadRules(context.Background())
	require.ErrorContains(t, err, "not a string list")
}

func TestSaveRules_WritesOneItemPerLanguage(t *testing.T) {
	db := &fakeDynamo{}
	c := mustNewClient(t, db)
	c.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	require.NoError(t, c.SaveRules(context.Background(), triage.DefaultRules()))
	require.Len(t, db.putInputs, 2)

	for _, in := range db.putInputs {
		require.Equal(t, "rules-table", *in.TableName)
		require.Equal(t, &types.AttributeValueMemberS{Value: "2026-01-02T03:04:05Z"}, in.Item["updatedAt"])
		lang, rules, err := itemToRules(in.Item)
		require.NoError(t, err)
		require.Equal(t, triage.DefaultRules()[lang], rules)
	}
}

func TestSaveRules_Errors(t *testing.T) {
	c := mustNewClient(t, &fakeDynamo{})
	require.Error(t, c.SaveRules(context.Background(), triage.RuleTable{}))

	c = mustNewClient(t, &fakeDynamo{putErr: errors.New("denied")})
	require.ErrorContains(t, c.SaveRules(context.Background(), triage.DefaultRules()), "denied")
}

func TestItemToRules_MalformedSortKey(t *testing.T) {
	item := makeRulesItem("en", "urgent", "emergency")
	item["SK"] = &types.AttributeValueMemberS{Value: "META#"}
	_, _, err := itemToRules(item)
	require.ErrorContains(t, err, "malformed sort key")
}
