// internal/state/dynamodb.go
package state

import (
	"context"
	"fmt"
	"time"

	"github.com/domipancho/courier-tracker/internal/reporter"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dynamodbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoAPI is the subset of *dynamodb.Client the store uses.
type DynamoAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// DynamoStore keeps tracking state in a single table keyed by "pk".
// One item holds the tracking flags; one item per provider holds its last fix.
// Several devices can share a table by using distinct prefixes.
type DynamoStore struct {
	client DynamoAPI
	table  string
	prefix string
}

type trackingItem struct {
	PK             string `dynamodbav:"pk"`
	TrackingActive bool   `dynamodbav:"tracking_active"`
	ActiveOrder    int64  `dynamodbav:"pedido_activo_id"`
	LastUpdate     int64  `dynamodbav:"last_update_timestamp"`
}

type lastKnownItem struct {
	PK         string  `dynamodbav:"pk"`
	Provider   string  `dynamodbav:"provider"`
	Latitude   float64 `dynamodbav:"lat"`
	Longitude  float64 `dynamodbav:"lon"`
	Accuracy   float64 `dynamodbav:"accuracy"`
	CapturedAt int64   `dynamodbav:"captured_at"`
}

func NewDynamoStore(client DynamoAPI, table, prefix string) *DynamoStore {
	if prefix == "" {
		prefix = "courier-tracker"
	}
	return &DynamoStore{client: client, table: table, prefix: prefix}
}

// OpenDynamo loads the default AWS credential chain and checks the table exists.
// A non-empty endpoint points the client at a local DynamoDB.
func OpenDynamo(ctx context.Context, region, endpoint, table, prefix string) (*DynamoStore, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	if _, err := client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(table),
	}); err != nil {
		return nil, fmt.Errorf("dynamodb describe %s: %w", table, err)
	}

	return NewDynamoStore(client, table, prefix), nil
}

func (d *DynamoStore) trackingKey() string {
	return d.prefix + "#tracking"
}

func (d *DynamoStore) lastKnownKey(p reporter.Provider) string {
	return fmt.Sprintf("%s#last_known#%s", d.prefix, p)
}

func keyOf(pk string) map[string]dynamodbtypes.AttributeValue {
	return map[string]dynamodbtypes.AttributeValue{
		"pk": &dynamodbtypes.AttributeValueMemberS{Value: pk},
	}
}

// get loads the item under pk into out; false when absent.
func (d *DynamoStore) get(ctx context.Context, pk string, out any) (bool, error) {
	res, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(d.table),
		Key:            keyOf(pk),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return false, fmt.Errorf("dynamodb get %s: %w", pk, err)
	}
	if res.Item == nil {
		return false, nil
	}
	if err := attributevalue.UnmarshalMap(res.Item, out); err != nil {
		return false, fmt.Errorf("dynamodb unmarshal %s: %w", pk, err)
	}
	return true, nil
}

func (d *DynamoStore) put(ctx context.Context, v any) error {
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		return fmt.Errorf("dynamodb marshal: %w", err)
	}
	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("dynamodb put: %w", err)
	}
	return nil
}

// updateTracking is read-modify-write; the service serializes its writers.
func (d *DynamoStore) updateTracking(ctx context.Context, fn func(*trackingItem)) error {
	var it trackingItem
	if _, err := d.get(ctx, d.trackingKey(), &it); err != nil {
		return err
	}
	it.PK = d.trackingKey()
	fn(&it)
	return d.put(ctx, it)
}

func (d *DynamoStore) tracking(ctx context.Context) (trackingItem, error) {
	var it trackingItem
	_, err := d.get(ctx, d.trackingKey(), &it)
	return it, err
}

func (d *DynamoStore) SetTrackingActive(ctx context.Context, active bool) error {
	return d.updateTracking(ctx, func(it *trackingItem) {
		it.TrackingActive = active
		it.LastUpdate = time.Now().UnixMilli()
	})
}

func (d *DynamoStore) TrackingActive(ctx context.Context) (bool, error) {
	it, err := d.tracking(ctx)
	return it.TrackingActive, err
}

func (d *DynamoStore) SetActiveOrder(ctx context.Context, orderID int64) error {
	return d.updateTracking(ctx, func(it *trackingItem) {
		it.ActiveOrder = orderID
	})
}

func (d *DynamoStore) ActiveOrder(ctx context.Context) (int64, error) {
	it, err := d.tracking(ctx)
	return it.ActiveOrder, err
}

func (d *DynamoStore) LastUpdate(ctx context.Context) (time.Time, error) {
	it, err := d.tracking(ctx)
	if err != nil || it.LastUpdate == 0 {
		return time.Time{}, err
	}
	return time.UnixMilli(it.LastUpdate), nil
}

func (d *DynamoStore) Clear(ctx context.Context) error {
	return d.updateTracking(ctx, func(it *trackingItem) {
		it.TrackingActive = false
		it.ActiveOrder = 0
	})
}

func (d *DynamoStore) SaveLastKnown(ctx context.Context, s reporter.PositionSample) error {
	return d.put(ctx, lastKnownItem{
		PK:         d.lastKnownKey(s.Provider),
		Provider:   string(s.Provider),
		Latitude:   s.Latitude,
		Longitude:  s.Longitude,
		Accuracy:   s.AccuracyMeters,
		CapturedAt: s.CapturedAt,
	})
}

func (d *DynamoStore) LastKnown(ctx context.Context, p reporter.Provider) (reporter.PositionSample, bool, error) {
	var it lastKnownItem
	ok, err := d.get(ctx, d.lastKnownKey(p), &it)
	if err != nil || !ok {
		return reporter.PositionSample{}, false, err
	}
	return reporter.PositionSample{
		Latitude:       it.Latitude,
		Longitude:      it.Longitude,
		AccuracyMeters: it.Accuracy,
		Provider:       p,
		CapturedAt:     it.CapturedAt,
	}, true, nil
}

// Close is a no-op; the SDK client holds no long-lived connection.
func (d *DynamoStore) Close() error { return nil }
