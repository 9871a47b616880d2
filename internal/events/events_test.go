package events

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kozaktomas/event-faces/internal/facematch"
)

type mockDDBClient struct {
	mock.Mock
}

func (m *mockDDBClient) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	args := m.Called(ctx, params)
	if out := args.Get(0); out != nil {
		return out.(*dynamodb.GetItemOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDDBClient) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	args := m.Called(ctx, params)
	if out := args.Get(0); out != nil {
		return out.(*dynamodb.QueryOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

func eventItem(owner, id, name string, photos string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"userEmail":  &types.AttributeValueMemberS{Value: owner},
		"id":         &types.AttributeValueMemberS{Value: id},
		"name":       &types.AttributeValueMemberS{Value: name},
		"photoCount": &types.AttributeValueMemberN{Value: photos},
	}
}

var scope = facematch.Scope{Owner: "jan@example.com", EventID: "wedding-2024"}

func TestRegistry_Resolve(t *testing.T) {
	client := new(mockDDBClient)
	client.On("GetItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.GetItemInput) bool {
		owner := in.Key["userEmail"].(*types.AttributeValueMemberS).Value
		id := in.Key["id"].(*types.AttributeValueMemberS).Value
		return aws.ToString(in.TableName) == "events" && owner == scope.Owner && id == scope.EventID
	})).Return(&dynamodb.GetItemOutput{Item: eventItem(scope.Owner, scope.EventID, "Wedding", "120")}, nil).Once()

	ev, err := NewRegistry(client, "events").Resolve(context.Background(), scope)

	require.NoError(t, err)
	assert.Equal(t, "Wedding", ev.Name)
	assert.Equal(t, 120, ev.PhotoCount)
	assert.Zero(t, ev.GuestCount)
	client.AssertExpectations(t)
}

func TestRegistry_Resolve_NotFound(t *testing.T) {
	client := new(mockDDBClient)
	client.On("GetItem", mock.Anything, mock.Anything).Return(&dynamodb.GetItemOutput{}, nil).Once()

	_, err := NewRegistry(client, "events").Resolve(context.Background(), scope)

	require.ErrorIs(t, err, ErrEventNotFound)
}

func TestRegistry_Resolve_Errors(t *testing.T) {
	client := new(mockDDBClient)
	client.On("GetItem", mock.Anything, mock.Anything).Return(nil, errors.New("ResourceNotFoundException")).Once()

	_, err := NewRegistry(client, "events").Resolve(context.Background(), scope)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrEventNotFound)

	_, err = NewRegistry(client, "events").Resolve(context.Background(), facematch.Scope{Owner: "jan"})
	require.ErrorIs(t, err, facematch.ErrInvalidInput)

	client.AssertNumberOfCalls(t, "GetItem", 1)
}

func TestRegistry_Resolve_BadNumber(t *testing.T) {
	client := new(mockDDBClient)
	client.On("GetItem", mock.Anything, mock.Anything).
		Return(&dynamodb.GetItemOutput{Item: eventItem(scope.Owner, scope.EventID, "Wedding", "many")}, nil).Once()

	_, err := NewRegistry(client, "events").Resolve(context.Background(), scope)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "photoCount")
}

func TestRegistry_List(t *testing.T) {
	client := new(mockDDBClient)
	client.On("Query", mock.Anything, mock.MatchedBy(func(in *dynamodb.QueryInput) bool {
		return in.ExclusiveStartKey == nil
	})).Return(&dynamodb.QueryOutput{
		Items:            []map[string]types.AttributeValue{eventItem(scope.Owner, "a", "A", "1")},
		LastEvaluatedKey: map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: "a"}},
	}, nil).Once()
	client.On("Query", mock.Anything, mock.MatchedBy(func(in *dynamodb.QueryInput) bool {
		return in.ExclusiveStartKey != nil
	})).Return(&dynamodb.QueryOutput{
		Items: []map[string]types.AttributeValue{eventItem(scope.Owner, "b", "B", "2")},
	}, nil).Once()

	list, err := NewRegistry(client, "events").List(context.Background(), scope.Owner)

	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID)
	assert.Equal(t, 2, list[1].PhotoCount)
	client.AssertExpectations(t)
}
