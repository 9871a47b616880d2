// Package events looks up events in the DynamoDB events table.
//
// The table is keyed by userEmail (HASH) and id (RANGE):
//
//	aws dynamodb create-table \
//	  --table-name events \
//	  --attribute-definitions AttributeName=userEmail,AttributeType=S AttributeName=id,AttributeType=S \
//	  --key-schema AttributeName=userEmail,KeyType=HASH AttributeName=id,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
package events

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/kozaktomas/event-faces/internal/facematch"
)

// ErrEventNotFound is returned when the scope names an event the owner does not have.
var ErrEventNotFound = errors.New("event not found")

// Event is an event record.
type Event struct {
	ID          string `json:"id"`
	UserEmail   string `json:"user_email"`
	Name        string `json:"name"`
	Date        string `json:"date,omitempty"`
	Description string `json:"description,omitempty"`
	CoverImage  string `json:"cover_image,omitempty"`
	PhotoCount  int    `json:"photo_count"`
	VideoCount  int    `json:"video_count"`
	GuestCount  int    `json:"guest_count"`
	CreatedAt   string `json:"created_at,omitempty"`
	UpdatedAt   string `json:"updated_at,omitempty"`
}

// DDBClient is the subset of the DynamoDB API used by Registry.
type DDBClient interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Registry reads events from a DynamoDB table.
type Registry struct {
	client    DDBClient
	tableName string
}

// NewRegistry creates a registry over tableName.
func NewRegistry(client DDBClient, tableName string) *Registry {
	return &Registry{client: client, tableName: tableName}
}

// Resolve returns the event the scope refers to, or ErrEventNotFound.
func (r *Registry) Resolve(ctx context.Context, scope facematch.Scope) (*Event, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	resp, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"userEmail": &types.AttributeValueMemberS{Value: scope.Owner},
			"id":        &types.AttributeValueMemberS{Value: scope.EventID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get event %s: %w", scope.EventID, err)
	}
	if len(resp.Item) == 0 {
		return nil, fmt.Errorf("%s/%s: %w", scope.Owner, scope.EventID, ErrEventNotFound)
	}
	return decodeEvent(resp.Item)
}

// List returns all events of an owner.
func (r *Registry) List(ctx context.Context, owner string) ([]Event, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("userEmail = :userEmail"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":userEmail": &types.AttributeValueMemberS{Value: owner},
		},
	}

	paginator := dynamodb.NewQueryPaginator(r.client, input)
	var events []Event
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to query events of %s: %w", owner, err)
		}
		for _, item := range page.Items {
			ev, err := decodeEvent(item)
			if err != nil {
				return nil, err
			}
			events = append(events, *ev)
		}
	}
	return events, nil
}

func decodeEvent(item map[string]types.AttributeValue) (*Event, error) {
	ev := &Event{
		ID:          stringAttr(item, "id"),
		UserEmail:   stringAttr(item, "userEmail"),
		Name:        stringAttr(item, "name"),
		Date:        stringAttr(item, "date"),
		Description: stringAttr(item, "description"),
		CoverImage:  stringAttr(item, "coverImage"),
		CreatedAt:   stringAttr(item, "createdAt"),
		UpdatedAt:   stringAttr(item, "updatedAt"),
	}
	if ev.ID == "" || ev.UserEmail == "" {
		return nil, errors.New("invalid event item: missing key attributes")
	}

	var err error
	if ev.PhotoCount, err = numberAttr(item, "photoCount"); err != nil {
		return nil, err
	}
	if ev.VideoCount, err = numberAttr(item, "videoCount"); err != nil {
		return nil, err
	}
	if ev.GuestCount, err = numberAttr(item, "guestCount"); err != nil {
		return nil, err
	}
	return ev, nil
}

func stringAttr(item map[string]types.AttributeValue, name string) string {
	if v, ok := item[name].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

// numberAttr reads an optional numeric attribute; absent means zero.
func numberAttr(item map[string]types.AttributeValue, name string) (int, error) {
	v, ok := item[name].(*types.AttributeValueMemberN)
	if !ok {
		return 0, nil
	}
	n, err := strconv.Atoi(v.Value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s attribute: %w", name, err)
	}
	return n, nil
}
