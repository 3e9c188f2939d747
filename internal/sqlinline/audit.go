package sqlinline

const QInsertAuditEvent = `--sql 2a80f5c1-d946-4e37-8b12-60ce495d7af8
insert into audit_log (id, actor_id, action, target_id, properties, created_at)
values (gen_random_uuid(), $1::uuid, $2, $3, $4, now());
`

const QInsertUsageEvent = `--sql 9d43b7e0-218c-4f5a-bc69-a1f0d82e34c5
insert into usage_events (id, user_id, action, success, properties, created_at)
values (gen_random_uuid(), $1::uuid, $2, $3, $4, now());
`
