package sqlinline

// The active-subscription query fetches up to two rows so callers can detect
// a violated at-most-one invariant instead of silently picking one.
const QSelectActiveSubscriptionByUser = `--sql 1be05c7a-94d3-4f82-a6e0-c57218f9d4b3
select id, user_id, plan_id, is_annual, status, trial_end_date, current_period_end,
       provider_customer_id, provider_subscription_id, created_at, updated_at
from subscriptions
where user_id = $1::uuid
  and status in ('active', 'trialing')
order by created_at desc
limit 2;
`

const QUpsertSubscriptionFromEvent = `--sql d27f4a90-63b5-4c1e-b8f2-09e6a15d83c7
insert into subscriptions (id, user_id, plan_id, is_annual, status, trial_end_date,
                           current_period_end, provider_customer_id, provider_subscription_id,
                           created_at, updated_at)
values (gen_random_uuid(), $1::uuid, $2, $3, $4, $5, $6, $7, $8, now(), now())
on conflict (provider_subscription_id) do update set
    plan_id = excluded.plan_id,
    is_annual = excluded.is_annual,
    status = excluded.status,
    trial_end_date = excluded.trial_end_date,
    current_period_end = excluded.current_period_end,
    provider_customer_id = excluded.provider_customer_id,
    updated_at = now();
`

const QMarkSubscriptionCanceled = `--sql 85c1e6d4-07af-4329-9b5d-e2f84c60a197
update subscriptions
set status = 'canceled',
    updated_at = now()
where user_id = $1::uuid
  and status in ('active', 'trialing');
`

const QMarkSubscriptionCanceledByProviderID = `--sql 40a9d2c8-5e16-4f73-ba24-c783e01f5d69
update subscriptions
set status = 'canceled',
    updated_at = now()
where provider_subscription_id = $1;
`
