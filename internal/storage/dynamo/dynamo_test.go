package dynamo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/supportbot/internal/records"
	"github.com/m3rciful/supportbot/internal/users"
)

type fakeDynamo struct {
	getOut    *dynamodb.GetItemOutput
	getErr    error
	putErr    error
	updateErr error
	deleteErr error
	pages     []*dynamodb.QueryOutput

	puts    []*dynamodb.PutItemInput
	updates []*dynamodb.UpdateItemInput
	queries []*dynamodb.QueryInput
	deletes []*dynamodb.DeleteItemInput
}

func (f *fakeDynamo) GetItem(_ context.Context, _ *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return f.getOut, f.getErr
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.puts = append(f.puts, in)
	return &dynamodb.PutItemOutput{}, f.putErr
}

func (f *fakeDynamo) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.updates = append(f.updates, in)
	return &dynamodb.UpdateItemOutput{}, f.updateErr
}

func (f *fakeDynamo) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.deletes = append(f.deletes, in)
	return &dynamodb.DeleteItemOutput{}, f.deleteErr
}

func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	// The store reuses the input between pages.
	cp := *in
	f.queries = append(f.queries, &cp)
	out := f.pages[0]
	f.pages = f.pages[1:]
	return out, nil
}

func mustStore(t *testing.T, api *fakeDynamo) *Store {
	t.Helper()
	s, err := New(api, "supportbot")
	require.NoError(t, err)
	return s
}

func TestNewValidates(t *testing.T) {
	_, err := New(nil, "t")
	require.Error(t, err)
	_, err = New(&fakeDynamo{}, " ")
	require.Error(t, err)
}

func TestCreateAndFetchAcrossPages(t *testing.T) {
	api := &fakeDynamo{}
	s := mustStore(t, api).Records()
	ctx := context.Background()

	rec, err := records.New(7, "hello", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
	require.NoError(t, err)
	require.NoError(t, s.Create(ctx, rec))
	require.Len(t, api.puts, 1)
	item := api.puts[0].Item
	assert.Equal(t, "OWNER#7", item["PK"].(*types.AttributeValueMemberS).Value)
	assert.Equal(t, "REQ#"+rec.ID.String(), item["SK"].(*types.AttributeValueMemberS).Value)
	assert.NotContains(t, item, "answer")
	assert.Equal(t, condNotExists, aws.ToString(api.puts[0].ConditionExpression))

	answer := "42"
	other := records.Record{ID: uuid.New(), OwnerID: 7, Text: "older", Status: records.StatusAnswered, Answer: &answer}
	api.pages = []*dynamodb.QueryOutput{
		{Items: []map[string]types.AttributeValue{item}, LastEvaluatedKey: map[string]types.AttributeValue{"PK": str("OWNER#7")}},
		{Items: []map[string]types.AttributeValue{recordItem(other)}},
	}
	got, err := s.FetchForOwner(ctx, 7)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, rec.ID, got[0].ID)
	assert.Equal(t, rec.CreatedAt, got[0].CreatedAt)
	assert.Nil(t, got[0].Answer)
	require.NotNil(t, got[1].Answer)
	assert.Equal(t, "42", *got[1].Answer)

	require.Len(t, api.queries, 2)
	assert.False(t, aws.ToBool(api.queries[0].ScanIndexForward))
	assert.Nil(t, api.queries[0].ExclusiveStartKey)
	assert.NotNil(t, api.queries[1].ExclusiveStartKey)
}

func TestFetchRejectsMalformedItem(t *testing.T) {
	api := &fakeDynamo{pages: []*dynamodb.QueryOutput{{Items: []map[string]types.AttributeValue{
		{"PK": str("OWNER#1"), "SK": str("REQ#not-a-uuid")},
	}}}}
	_, err := mustStore(t, api).Records().FetchForOwner(context.Background(), 1)
	require.Error(t, err)
}

func TestSetAnswerMapsMissingItem(t *testing.T) {
	api := &fakeDynamo{}
	s := mustStore(t, api).Records()
	ref := records.Ref{OwnerID: 3, ID: uuid.New()}

	require.NoError(t, s.SetAnswer(context.Background(), ref, "ok"))
	in := api.updates[0]
	assert.Equal(t, "answered", in.ExpressionAttributeValues[":status"].(*types.AttributeValueMemberS).Value)
	assert.Equal(t, "ok", in.ExpressionAttributeValues[":answer"].(*types.AttributeValueMemberS).Value)

	api.updateErr = &types.ConditionalCheckFailedException{}
	assert.ErrorIs(t, s.SetStatus(context.Background(), ref, records.StatusAccepted), records.ErrNotFound)

	boom := errors.New("throttled")
	api.updateErr = boom
	assert.ErrorIs(t, s.SetStatus(context.Background(), ref, records.StatusAccepted), boom)
}

func TestUsersRegisterIsInsertIfAbsent(t *testing.T) {
	api := &fakeDynamo{}
	s := mustStore(t, api).Users()

	created, err := s.Register(context.Background(), users.User{TelegramID: 9, Username: "ann"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "default", api.puts[0].Item["role"].(*types.AttributeValueMemberS).Value)

	api.putErr = &types.ConditionalCheckFailedException{}
	created, err = s.Register(context.Background(), users.User{TelegramID: 9})
	require.NoError(t, err)
	assert.False(t, created)
}

func TestUsersRole(t *testing.T) {
	api := &fakeDynamo{getOut: &dynamodb.GetItemOutput{}}
	s := mustStore(t, api).Users()

	_, err := s.Role(context.Background(), 1)
	assert.ErrorIs(t, err, users.ErrNotFound)

	api.getOut = &dynamodb.GetItemOutput{Item: map[string]types.AttributeValue{"role": str("admin")}}
	role, err := s.Role(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, users.RoleAdmin, role)

	api.updateErr = &types.ConditionalCheckFailedException{}
	assert.ErrorIs(t, s.SetRole(context.Background(), 2, users.RoleAdmin), users.ErrNotFound)
}

func TestDeleteRecord(t *testing.T) {
	api := &fakeDynamo{}
	s := mustStore(t, api).Records()
	ref := records.Ref{OwnerID: 4, ID: uuid.New()}

	require.NoError(t, s.Delete(context.Background(), ref))
	require.Len(t, api.deletes, 1)
	in := api.deletes[0]
	assert.Equal(t, "OWNER#4", in.Key["PK"].(*types.AttributeValueMemberS).Value)
	assert.Equal(t, "REQ#"+ref.ID.String(), in.Key["SK"].(*types.AttributeValueMemberS).Value)
	assert.Equal(t, condExists, aws.ToString(in.ConditionExpression))

	api.deleteErr = &types.ConditionalCheckFailedException{}
	assert.ErrorIs(t, s.Delete(context.Background(), ref), records.ErrNotFound)
}
