package counter_test

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kpauljoseph/ankix/internal/counter"
	"github.com/kpauljoseph/ankix/pkg/logger"
)

// fakeDynamo stores one numeric attribute per key and applies ADD updates.
type fakeDynamo struct {
	mu       sync.Mutex
	values   map[string]int64
	lastIn   *dynamodb.UpdateItemInput
	failWith error
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{values: map[string]int64{}}
}

func keyOf(key map[string]types.AttributeValue) string {
	return key["id"].(*types.AttributeValueMemberS).Value
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}

	id := keyOf(in.Key)
	value, ok := f.values[id]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: map[string]types.AttributeValue{
		"id":      &types.AttributeValueMemberS{Value: id},
		"counter": &types.AttributeValueMemberN{Value: strconv.FormatInt(value, 10)},
	}}, nil
}

func (f *fakeDynamo) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	f.lastIn = in

	id := keyOf(in.Key)
	delta, err := strconv.ParseInt(in.ExpressionAttributeValues[":n"].(*types.AttributeValueMemberN).Value, 10, 64)
	if err != nil {
		return nil, err
	}

	out := &dynamodb.UpdateItemOutput{}
	if old, ok := f.values[id]; ok {
		out.Attributes = map[string]types.AttributeValue{
			"counter": &types.AttributeValueMemberN{Value: strconv.FormatInt(old, 10)},
		}
	}
	f.values[id] += delta
	return out, nil
}

var _ = Describe("DynamoStore", func() {
	var (
		ctx    context.Context
		api    *fakeDynamo
		store  *counter.DynamoStore
		client *counter.Client
	)

	BeforeEach(func() {
		ctx = context.Background()
		api = newFakeDynamo()
		store = counter.NewDynamoStoreWithAPI(api, "ankix", "")
		client = counter.NewClient(store, logger.New(logger.WithOutput(GinkgoWriter)))
	})

	It("should treat a missing item as zero", func() {
		Expect(client.Current(ctx)).To(HaveValue(BeEquivalentTo(0)))
		Expect(client.GetAndIncrement(ctx, 4)).To(HaveValue(BeEquivalentTo(0)))
	})

	It("should return the value from before the increment", func() {
		api.values[counter.DefaultDynamoKey] = 10

		Expect(client.GetAndIncrement(ctx, 5)).To(HaveValue(BeEquivalentTo(10)))
		Expect(client.Current(ctx)).To(HaveValue(BeEquivalentTo(15)))
	})

	It("should increment with a single ADD expression", func() {
		client.GetAndIncrement(ctx, 2)

		Expect(*api.lastIn.TableName).To(Equal("ankix"))
		Expect(*api.lastIn.UpdateExpression).To(Equal("ADD #c :n"))
		Expect(api.lastIn.ExpressionAttributeNames).To(HaveKeyWithValue("#c", "counter"))
		Expect(api.lastIn.ReturnValues).To(Equal(types.ReturnValueUpdatedOld))
	})

	It("should report unknown when DynamoDB fails", func() {
		api.failWith = errors.New("throttled")
		Expect(client.Current(ctx)).To(BeNil())
		Expect(client.GetAndIncrement(ctx, 1)).To(BeNil())
		Expect(client.Diagnose(ctx)).To(BeFalse())
	})
})
