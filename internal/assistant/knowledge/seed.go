package knowledge

// seedDocuments is the built-in QuickSpin documentation corpus.
var seedDocuments = []Snippet{
	{
		ID:       "redis_setup",
		Category: CategorySetup,
		Content: `Redis Setup on QuickSpin:
- Starter tier: 256MB RAM, 0.5 CPU cores, $0.008/hour
- Pro tier: 1GB RAM, 1 CPU core, $0.03/hour
- Enterprise tier: 4GB RAM, 2 CPU cores, $0.12/hour

Connection: use any Redis client with the provided host and password.
Best practices: set maxmemory-policy for cache eviction, enable persistence for durability.`,
	},
	{
		ID:       "rabbitmq_setup",
		Category: CategorySetup,
		Content: `RabbitMQ Setup on QuickSpin:
- Starter tier: 512MB RAM, 0.5 CPU cores, $0.015/hour
- Pro tier: 2GB RAM, 1 CPU core, $0.05/hour
- Enterprise tier: 8GB RAM, 2 CPU cores, $0.18/hour

Connection: any AMQP 0-9-1 client.
Best practices: use separate vhosts per environment, implement dead-letter exchanges.`,
	},
	{
		ID:       "postgresql_setup",
		Category: CategorySetup,
		Content: `PostgreSQL Setup on QuickSpin:
- Starter tier: 1GB RAM, 0.5 CPU cores, 10GB storage, $0.02/hour
- Pro tier: 4GB RAM, 2 CPU cores, 50GB storage, $0.08/hour
- Enterprise tier: 16GB RAM, 4 CPU cores, 200GB storage, $0.30/hour

Connection: standard PostgreSQL wire protocol.
Best practices: enable connection pooling, regular VACUUM, use indexes.`,
	},
	{
		ID:       "troubleshooting_common",
		Category: CategoryCommonIssues,
		Content: `Common RabbitMQ Issues:
- Queue filling up: check consumer health, scale consumers, increase prefetch count
- Connection timeouts: verify network policies, check authentication
- Memory issues: implement queue length limits, use lazy queues

Common Redis Issues:
- Memory full: check maxmemory-policy, implement eviction, upgrade tier
- Slow queries: use SLOWLOG, optimize data structures, add indexes
- Connection errors: verify credentials, check network policies`,
	},
	{
		ID:       "cost_optimization",
		Category: CategoryOptimization,
		Content: `Cost Optimization Strategies:
- Delete unused services (idle > 7 days)
- Downgrade oversized instances (< 30% resource usage)
- Enable backups only for production services
- Use Starter tier for development/testing
- Disable high availability for non-critical services`,
	},
}
