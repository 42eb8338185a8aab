// Package dynamo implements the record and user stores on a single DynamoDB table.
//
// Records live under PK "OWNER#<owner>" with SK "REQ#<id>". Record ids are
// UUIDv7, so sort key order follows creation time. Users live under
// PK "USER#<id>" with SK "PROFILE".
package dynamo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/m3rciful/supportbot/internal/records"
	"github.com/m3rciful/supportbot/internal/users"
)

const (
	pkOwner   = "OWNER#"
	pkUser    = "USER#"
	skRequest = "REQ#"
	skProfile = "PROFILE"

	condExists    = "attribute_exists(PK) AND attribute_exists(SK)"
	condNotExists = "attribute_not_exists(PK) AND attribute_not_exists(SK)"
)

// dynamodbAPI is the subset of *dynamodb.Client used by Store.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// Store serves both records.Store (via Records) and users.Store (via Users).
type Store struct {
	api   dynamodbAPI
	table string
}

// New wraps api and the table name.
func New(api dynamodbAPI, table string) (*Store, error) {
	if api == nil {
		return nil, errors.New("dynamo: api must not be nil")
	}
	if strings.TrimSpace(table) == "" {
		return nil, errors.New("dynamo: table name must not be empty")
	}
	return &Store{api: api, table: table}, nil
}

// Records returns the records.Store view of s.
func (s *Store) Records() *Records { return &Records{s} }

// Users returns the users.Store view of s.
func (s *Store) Users() *Users { return &Users{s} }

func ownerPK(ownerID int64) string { return pkOwner + strconv.FormatInt(ownerID, 10) }

func userPK(id int64) string { return pkUser + strconv.FormatInt(id, 10) }

func requestSK(id uuid.UUID) string { return skRequest + id.String() }

func str(v string) types.AttributeValue { return &types.AttributeValueMemberS{Value: v} }

func num(v int64) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(v, 10)}
}

func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

// Records is a records.Store over the shared table.
type Records struct{ s *Store }

// FetchForOwner queries all request items of ownerID, newest first.
func (r *Records) FetchForOwner(ctx context.Context, ownerID int64) ([]records.Record, error) {
	in := &dynamodb.QueryInput{
		TableName:              aws.String(r.s.table),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     str(ownerPK(ownerID)),
			":prefix": str(skRequest),
		},
		ScanIndexForward: aws.Bool(false),
	}
	var out []records.Record
	for {
		page, err := r.s.api.Query(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("dynamo: query records of %d: %w", ownerID, err)
		}
		for _, item := range page.Items {
			rec, err := itemToRecord(item)
			if err != nil {
				return nil, fmt.Errorf("dynamo: decode record: %w", err)
			}
			out = append(out, rec)
		}
		if len(page.LastEvaluatedKey) == 0 {
			return out, nil
		}
		in.ExclusiveStartKey = page.LastEvaluatedKey
	}
}

// Create puts a new request item. An existing item with the same key is an error.
func (r *Records) Create(ctx context.Context, rec records.Record) error {
	_, err := r.s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.s.table),
		Item:                recordItem(rec),
		ConditionExpression: aws.String(condNotExists),
	})
	if err != nil {
		return fmt.Errorf("dynamo: create record %s: %w", rec.Ref(), err)
	}
	return nil
}

// SetStatus changes the status of an existing request item.
func (r *Records) SetStatus(ctx context.Context, ref records.Ref, status records.Status) error {
	return r.update(ctx, ref, "SET #status = :status", map[string]types.AttributeValue{
		":status": str(string(status)),
	})
}

// SetAnswer stores the answer and marks the item answered.
func (r *Records) SetAnswer(ctx context.Context, ref records.Ref, answer string) error {
	return r.update(ctx, ref, "SET #status = :status, answer = :answer", map[string]types.AttributeValue{
		":status": str(string(records.StatusAnswered)),
		":answer": str(answer),
	})
}

// Delete removes an existing request item.
func (r *Records) Delete(ctx context.Context, ref records.Ref) error {
	_, err := r.s.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.s.table),
		Key: map[string]types.AttributeValue{
			"PK": str(ownerPK(ref.OwnerID)),
			"SK": str(requestSK(ref.ID)),
		},
		ConditionExpression: aws.String(condExists),
	})
	if isConditionFailed(err) {
		return records.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("dynamo: delete record %s: %w", ref, err)
	}
	return nil
}

func (r *Records) update(ctx context.Context, ref records.Ref, expr string, values map[string]types.AttributeValue) error {
	_, err := r.s.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.s.table),
		Key: map[string]types.AttributeValue{
			"PK": str(ownerPK(ref.OwnerID)),
			"SK": str(requestSK(ref.ID)),
		},
		UpdateExpression:          aws.String(expr),
		ConditionExpression:       aws.String(condExists),
		ExpressionAttributeNames:  map[string]string{"#status": "status"},
		ExpressionAttributeValues: values,
	})
	if isConditionFailed(err) {
		return records.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("dynamo: update record %s: %w", ref, err)
	}
	return nil
}

func recordItem(r records.Record) map[string]types.AttributeValue {
	item := map[string]types.AttributeValue{
		"PK":        str(ownerPK(r.OwnerID)),
		"SK":        str(requestSK(r.ID)),
		"ownerId":   num(r.OwnerID),
		"text":      str(r.Text),
		"status":    str(string(r.Status)),
		"createdAt": str(r.CreatedAt.UTC().Format(time.RFC3339Nano)),
	}
	if r.Answer != nil {
		item["answer"] = str(*r.Answer)
	}
	return item
}

func itemToRecord(item map[string]types.AttributeValue) (records.Record, error) {
	sk, err := strAttr(item, "SK")
	if err != nil {
		return records.Record{}, err
	}
	id, err := uuid.Parse(strings.TrimPrefix(sk, skRequest))
	if err != nil {
		return records.Record{}, fmt.Errorf("parse id from %q: %w", sk, err)
	}
	owner, err := intAttr(item, "ownerId")
	if err != nil {
		return records.Record{}, err
	}
	text, err := strAttr(item, "text")
	if err != nil {
		return records.Record{}, err
	}
	status, err := strAttr(item, "status")
	if err != nil {
		return records.Record{}, err
	}
	rec := records.Record{ID: id, OwnerID: owner, Text: text, Status: records.Status(status)}
	if created, err := strAttr(item, "createdAt"); err == nil {
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	}
	if answer, err := strAttr(item, "answer"); err == nil {
		rec.Answer = &answer
	}
	return rec, nil
}

// Users is a users.Store over the shared table.
type Users struct{ s *Store }

// Register puts the profile item unless it already exists.
func (u *Users) Register(ctx context.Context, user users.User) (bool, error) {
	if user.Role == "" {
		user.Role = users.RoleDefault
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	_, err := u.s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(u.s.table),
		Item: map[string]types.AttributeValue{
			"PK":        str(userPK(user.TelegramID)),
			"SK":        str(skProfile),
			"username":  str(user.Username),
			"role":      str(string(user.Role)),
			"createdAt": str(user.CreatedAt.UTC().Format(time.RFC3339Nano)),
		},
		ConditionExpression: aws.String(condNotExists),
	})
	if isConditionFailed(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("dynamo: register user %d: %w", user.TelegramID, err)
	}
	return true, nil
}

// Role reads the stored role.
func (u *Users) Role(ctx context.Context, telegramID int64) (users.Role, error) {
	out, err := u.s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(u.s.table),
		Key: map[string]types.AttributeValue{
			"PK": str(userPK(telegramID)),
			"SK": str(skProfile),
		},
		ConsistentRead:           aws.Bool(true),
		ProjectionExpression:     aws.String("#role"),
		ExpressionAttributeNames: map[string]string{"#role": "role"},
	})
	if err != nil {
		return "", fmt.Errorf("dynamo: role of %d: %w", telegramID, err)
	}
	if out == nil || len(out.Item) == 0 {
		return "", users.ErrNotFound
	}
	role, err := strAttr(out.Item, "role")
	if err != nil {
		return "", fmt.Errorf("dynamo: role of %d: %w", telegramID, err)
	}
	return users.Role(role), nil
}

// SetRole updates the role of an existing profile item.
func (u *Users) SetRole(ctx context.Context, telegramID int64, role users.Role) error {
	_, err := u.s.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(u.s.table),
		Key: map[string]types.AttributeValue{
			"PK": str(userPK(telegramID)),
			"SK": str(skProfile),
		},
		UpdateExpression:          aws.String("SET #role = :role"),
		ConditionExpression:       aws.String(condExists),
		ExpressionAttributeNames:  map[string]string{"#role": "role"},
		ExpressionAttributeValues: map[string]types.AttributeValue{":role": str(string(role))},
	})
	if isConditionFailed(err) {
		return users.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("dynamo: set role of %d: %w", telegramID, err)
	}
	return nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("attribute %q is not a string", key)
	}
	return s.Value, nil
}

func intAttr(item map[string]types.AttributeValue, key string) (int64, error) {
	v, ok := item[key]
	if !ok {
		return 0, fmt.Errorf("missing attribute %q", key)
	}
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("attribute %q is not a number", key)
	}
	parsed, err := strconv.ParseInt(n.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse attribute %q: %w", key, err)
	}
	return parsed, nil
}
