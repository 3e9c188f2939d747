package sqlinline

const QUpsertGoogleUser = `--sql 7c2f1b4e-9a3d-4f06-b851-2e64c90d7a13
insert into users (id, google_sub, email, name, picture, locale, created_at, updated_at)
values (gen_random_uuid(), $1, $2, $3, $4, $5, now(), now())
on conflict (google_sub) do update set
    email = excluded.email,
    name = excluded.name,
    picture = excluded.picture,
    locale = excluded.locale,
    last_seen_at = now(),
    updated_at = now()
returning id, deleted;
`

const QSelectUserByID = `--sql 3f9e5d21-6b80-4c47-a2d9-50f1e8c6b374
select id, google_sub, email, name, picture, locale, deleted, last_seen_at, created_at, updated_at
from users
where id = $1::uuid
limit 1;
`

const QListUsers = `--sql b48a2c7d-1e53-4b9f-8c06-97d3f52a0e61
select id, google_sub, email, name, picture, locale, deleted, last_seen_at, created_at, updated_at
from users
order by created_at desc;
`

const QSelectUserIDByEmail = `--sql c75a1d93-48ef-4b02-a6c1-59d8f3e7ba26
select id from users where lower(email) = lower($1) limit 1;
`

const QTouchLastSeen = `--sql e1d74f28-0c9b-4a65-9f32-c8561b3da407
update users set last_seen_at = now() where id = $1::uuid;
`

const QUpdateUserProfile = `--sql 92c06e5b-7f14-48da-b3c7-14a9e82d5f60
update users
set name = $2,
    email = $3,
    updated_at = now()
where id = $1::uuid
returning id;
`

const QSoftDeleteUser = `--sql 58b3d9f0-24c6-4e18-a75b-d0f682c1e943
update users
set deleted = true,
    updated_at = now()
where id = $1::uuid
  and deleted = false
returning id;
`
