package sqlinline

// Provider event IDs are unique, so replayed webhooks become no-ops.
const QInsertBillingEvent = `--sql f62d8b03-4c97-4ae5-91d0-7358e2c4a6fb
insert into billing_events (id, provider_event_id, event_type, payload, received_at)
values (gen_random_uuid(), $1, $2, $3, now())
on conflict (provider_event_id) do nothing;
`
