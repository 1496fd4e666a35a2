package bootstrap

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/route53/types"

	ringkeepConfig "ringkeep/internal/config"
	"ringkeep/internal/ring"
)

// Route53Bootstrap discovers peers by listing SRV records in a hosted zone
// and registers this node's own SRV record on join (§11.1).
type Route53Bootstrap struct {
	client       *route53.Client
	hostedZoneID string
	domainSuffix string
	ttl          int64
}

// NewRoute53Bootstrap builds a Route53Bootstrap from configuration, using
// the default AWS credential chain.
func NewRoute53Bootstrap(cfg ringkeepConfig.RegisterConfig) (*Route53Bootstrap, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := newClient(ctx)
	if err != nil {
		return nil, err
	}
	return &Route53Bootstrap{
		client:       client,
		hostedZoneID: cfg.HostedZoneID,
		domainSuffix: strings.TrimSuffix(cfg.DomainSuffix, "."),
		ttl:          cfg.TTL,
	}, nil
}

func newClient(ctx context.Context) (*route53.Client, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	return route53.NewFromConfig(awsCfg), nil
}

// Discover queries Route53 for SRV records under the configured domain
// suffix and resolves each record's target host to concrete IP:port
// addresses.
func (r *Route53Bootstrap) Discover(ctx context.Context) ([]string, error) {
	var endpoints []string
	input := &route53.ListResourceRecordSetsInput{
		HostedZoneId: aws.String(r.hostedZoneID),
	}
	paginator := route53.NewListResourceRecordSetsPaginator(r.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: list route53 records: %w", err)
		}
		for _, rrset := range page.ResourceRecordSets {
			if rrset.Type != types.RRTypeSrv {
				continue
			}
			if !strings.HasSuffix(strings.TrimSuffix(*rrset.Name, "."), r.domainSuffix) {
				continue
			}
			for _, rr := range rrset.ResourceRecords {
				var prio, weight, port int
				var target string
				if _, err := fmt.Sscanf(*rr.Value, "%d %d %d %s", &prio, &weight, &port, &target); err != nil {
					continue
				}
				target = strings.TrimSuffix(target, ".")

				ips, err := net.LookupHost(target)
				if err != nil {
					continue
				}
				for _, ip := range ips {
					endpoints = append(endpoints, fmt.Sprintf("%s:%d", ip, port))
				}
			}
		}
	}
	return endpoints, nil
}

// recordName builds the SRV record name for a node identity. The node id
// already embeds the UDP address and join timestamp (§3), so it is unique
// without any additional hashing.
func (r *Route53Bootstrap) recordName(id ring.NodeId) string {
	sanitized := strings.NewReplacer(":", "-", "|", "-", ".", "-").Replace(string(id))
	return fmt.Sprintf("%s.%s.", sanitized, r.domainSuffix)
}

// Register creates or updates the SRV record advertising id at udpAddr.
func (r *Route53Bootstrap) Register(ctx context.Context, id ring.NodeId, udpAddr string) error {
	host, port, err := net.SplitHostPort(udpAddr)
	if err != nil {
		return fmt.Errorf("bootstrap: split udp addr %q: %w", udpAddr, err)
	}
	input := &route53.ChangeResourceRecordSetsInput{
		HostedZoneId: aws.String(r.hostedZoneID),
		ChangeBatch: &types.ChangeBatch{
			Changes: []types.Change{
				{
					Action: types.ChangeActionUpsert,
					ResourceRecordSet: &types.ResourceRecordSet{
						Name: aws.String(r.recordName(id)),
						Type: types.RRTypeSrv,
						TTL:  aws.Int64(r.ttl),
						ResourceRecords: []types.ResourceRecord{
							{
								Value: aws.String(fmt.Sprintf("0 0 %s %s.", port, host)),
							},
						},
					},
				},
			},
		},
	}
	_, err = r.client.ChangeResourceRecordSets(ctx, input)
	return err
}

// Deregister removes the SRV record previously created by Register.
func (r *Route53Bootstrap) Deregister(ctx context.Context, id ring.NodeId) error {
	input := &route53.ChangeResourceRecordSetsInput{
		HostedZoneId: aws.String(r.hostedZoneID),
		ChangeBatch: &types.ChangeBatch{
			Changes: []types.Change{
				{
					Action: types.ChangeActionDelete,
					ResourceRecordSet: &types.ResourceRecordSet{
						Name: aws.String(r.recordName(id)),
						Type: types.RRTypeSrv,
						TTL:  aws.Int64(r.ttl),
					},
				},
			},
		},
	}
	_, err := r.client.ChangeResourceRecordSets(ctx, input)
	return err
}
