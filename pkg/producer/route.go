package producer

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/AutoMQ/rocketmq-client/pkg/route"
	"github.com/AutoMQ/rocketmq-client/pkg/rpc/protocol"
	"github.com/AutoMQ/rocketmq-client/pkg/util/randutil"
)

// PublishInfo returns the publish info of topic, querying the name server if the topic is not known yet.
func (p *Producer) PublishInfo(ctx context.Context, topic string) (*route.TopicPublishInfo, error) {
	info, _, err := p.publishInfo(ctx, topic)
	return info, err
}

// publishInfo also reports whether the route was queried by this call.
func (p *Producer) publishInfo(ctx context.Context, topic string) (*route.TopicPublishInfo, bool, error) {
	if info, ok := p.topics.Get(topic); ok {
		return info, false, nil
	}
	info, err := p.refresh(ctx, topic)
	if err != nil {
		return nil, false, err
	}
	return info, true, nil
}

// refresh queries the route of topic and installs it.
// Concurrent refreshes of the same topic share one query.
func (p *Producer) refresh(ctx context.Context, topic string) (*route.TopicPublishInfo, error) {
	ch := p.group.DoChan(topic, func() (interface{}, error) {
		// the query is shared, so it must not be canceled with the first caller
		queryCtx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()
		data, err := p.queryRoute(queryCtx, topic)
		if err != nil {
			return nil, err
		}
		return p.install(topic, data), nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*route.TopicPublishInfo), nil
	case <-ctx.Done():
		return nil, errors.Wrapf(ctx.Err(), "wait for route of topic %s", topic)
	}
}

func (p *Producer) queryRoute(ctx context.Context, topic string) (*route.TopicRouteData, error) {
	logger := p.lg.With(zap.String("topic", topic))

	c, err := p.clients.Get(p.nameServer)
	if err != nil {
		return nil, errors.WithMessage(err, "get name server client")
	}
	md, err := p.metadata()
	if err != nil {
		return nil, err
	}
	t := p.topic(topic)
	resp, err := c.QueryRoute(ctx, &protocol.QueryRouteRequest{
		Topic:     t.Wire(),
		Endpoints: p.nameServer.Wire(),
	}, md)
	if err != nil {
		logger.Warn("failed to query route", zap.Error(err))
		return nil, errors.WithMessagef(err, "query route of topic %s", topic)
	}
	data, err := route.FromQueryRouteResponse(t, resp)
	if err != nil {
		logger.Warn("invalid route", zap.Error(err))
		return nil, errors.WithMessagef(err, "convert route of topic %s", topic)
	}
	logger.Debug("route updated", zap.Int("partitions", data.Len()))
	return data, nil
}

func (p *Producer) install(topic string, data *route.TopicRouteData) *route.TopicPublishInfo {
	return p.topics.Upsert(topic, nil, func(exist bool, valueInMap *route.TopicPublishInfo, _ *route.TopicPublishInfo) *route.TopicPublishInfo {
		if exist {
			valueInMap.Update(data)
			return valueInMap
		}
		opts := []route.PublishInfoOption{route.WithStartIndex(startIndex())}
		if p.faults != nil {
			opts = append(opts, route.WithFaultTracker(p.faults))
		}
		return route.NewTopicPublishInfo(topic, data, opts...)
	})
}

// startIndex spreads the first picks of producers over the queues.
func startIndex() uint64 {
	i, err := randutil.Uint64()
	if err != nil {
		return 0
	}
	return i
}

// refreshLoop refreshes the routes of every known topic until the producer shuts down.
func (p *Producer) refreshLoop(interval time.Duration) {
	defer p.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-p.stopC:
			return
		case <-ticker.C:
			p.refreshAll()
		}
	}
}

func (p *Producer) refreshAll() {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	for _, topic := range p.topics.Keys() {
		if _, err := p.refresh(ctx, topic); err != nil {
			// keep serving the last known route
			p.lg.Warn("failed to refresh route", zap.String("topic", topic), zap.Error(err))
		}
	}
}
