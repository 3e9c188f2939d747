package sqlinline

const QStatsSummary = `--sql 71c5e9a2-fb30-4d86-a14e-8d27c60b93f5
select
    (select count(*) from users) as total_users,
    (select count(*) from users where deleted) as deleted_users,
    (select count(*) from subscriptions where status = 'active') as active_subscriptions,
    (select count(*) from subscriptions where status = 'trialing') as trialing_subscriptions,
    (select count(*) from subscriptions where status = 'canceled') as canceled_subscriptions,
    (select count(*) from users where created_at >= now() - interval '24 hours') as new_users_24h;
`
